package mirror

import (
	"fmt"
	"os"

	"github.com/xuri/excelize/v2"
)

// ExcelClient — зеркало в виде xlsx-книги по общему пути.
// Изменения копятся в памяти и пишутся на диск в Flush.
type ExcelClient struct {
	path        string
	f           *excelize.File
	placeholder bool // в новой книге остался стандартный Sheet1
}

func OpenExcel(path string) (*ExcelClient, error) {
	if _, err := os.Stat(path); err == nil {
		f, err := excelize.OpenFile(path)
		if err != nil {
			return nil, fmt.Errorf("открытие зеркала %s: %w", path, err)
		}
		return &ExcelClient{path: path, f: f}, nil
	}
	return &ExcelClient{path: path, f: excelize.NewFile(), placeholder: true}, nil
}

func (c *ExcelClient) GetOrCreateTable(name string, header []string) (Table, error) {
	idx, err := c.f.GetSheetIndex(name)
	if err != nil {
		return nil, err
	}
	if idx == -1 {
		if c.placeholder {
			if err := c.f.SetSheetName("Sheet1", name); err != nil {
				return nil, err
			}
			c.placeholder = false
		} else {
			if _, err := c.f.NewSheet(name); err != nil {
				return nil, err
			}
		}
		if err := c.setRow(name, 1, header); err != nil {
			return nil, err
		}
	}
	return &excelTable{c: c, name: name, header: header}, nil
}

func (c *ExcelClient) Flush() error {
	return c.f.SaveAs(c.path)
}

func (c *ExcelClient) setRow(sheet string, row int, values []string) error {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return c.f.SetSheetRow(sheet, fmt.Sprintf("A%d", row), &cells)
}

type excelTable struct {
	c      *ExcelClient
	name   string
	header []string
}

func (t *excelTable) Name() string     { return t.name }
func (t *excelTable) Header() []string { return t.header }

func (t *excelTable) rows() ([][]string, error) {
	return t.c.f.GetRows(t.name)
}

func (t *excelTable) ReadAll() ([]Record, error) {
	rows, err := t.rows()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	header := rows[0]
	var out []Record
	for _, row := range rows[1:] {
		if len(row) == 0 {
			continue
		}
		rec := make(Record, len(header))
		for i, col := range header {
			if i < len(row) {
				rec[col] = row[i]
			} else {
				rec[col] = ""
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

func (t *excelTable) UpsertRow(key string, values []string) error {
	return withRowRetry(func() error {
		rows, err := t.rows()
		if err != nil {
			return err
		}
		for i := 1; i < len(rows); i++ {
			if len(rows[i]) > 0 && rows[i][0] == key {
				return t.c.setRow(t.name, i+1, values)
			}
		}
		return t.c.setRow(t.name, len(rows)+1, values)
	})
}

func (t *excelTable) DeleteMissing(keep map[string]struct{}) error {
	rows, err := t.rows()
	if err != nil {
		return err
	}
	// снизу вверх, чтобы не сдвигать ещё не просмотренные строки
	for i := len(rows); i >= 2; i-- {
		row := rows[i-1]
		if len(row) == 0 {
			continue
		}
		if _, ok := keep[row[0]]; !ok {
			if err := t.c.f.RemoveRow(t.name, i); err != nil {
				return err
			}
		}
	}
	return nil
}

func (t *excelTable) AppendRow(values []string) error {
	return withRowRetry(func() error {
		rows, err := t.rows()
		if err != nil {
			return err
		}
		return t.c.setRow(t.name, len(rows)+1, values)
	})
}

func (t *excelTable) Clear() error {
	rows, err := t.rows()
	if err != nil {
		return err
	}
	for i := len(rows); i >= 2; i-- {
		if err := t.c.f.RemoveRow(t.name, i); err != nil {
			return err
		}
	}
	return nil
}
