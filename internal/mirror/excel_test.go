package mirror

import (
	"path/filepath"
	"testing"
)

func newTestClient(t *testing.T) *ExcelClient {
	t.Helper()
	// файла нет — книга создаётся в памяти, на диск пишет только Flush
	c, err := OpenExcel(filepath.Join(t.TempDir(), "mirror.xlsx"))
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestExcelTable_UpsertAndReadAll(t *testing.T) {
	c := newTestClient(t)
	tbl, err := c.GetOrCreateTable("Users", []string{"ID", "Name"})
	if err != nil {
		t.Fatal(err)
	}

	if err := tbl.UpsertRow("1", []string{"1", "Иванов"}); err != nil {
		t.Fatal(err)
	}
	if err := tbl.UpsertRow("2", []string{"2", "Петров"}); err != nil {
		t.Fatal(err)
	}
	// upsert по существующему ключу перезаписывает, не дублирует
	if err := tbl.UpsertRow("1", []string{"1", "Иванов И."}); err != nil {
		t.Fatal(err)
	}

	recs, err := tbl.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 {
		t.Fatalf("ожидали 2 строки, получили %d: %v", len(recs), recs)
	}
	byID := map[string]Record{}
	for _, r := range recs {
		byID[r["ID"]] = r
	}
	if byID["1"]["Name"] != "Иванов И." {
		t.Fatalf("upsert не обновил строку: %v", byID["1"])
	}
	if byID["2"]["Name"] != "Петров" {
		t.Fatalf("вторая строка испорчена: %v", byID["2"])
	}
}

func TestExcelTable_DeleteMissing(t *testing.T) {
	c := newTestClient(t)
	tbl, err := c.GetOrCreateTable("Groups", []string{"ID", "Name"})
	if err != nil {
		t.Fatal(err)
	}

	for _, row := range [][]string{{"1", "А"}, {"2", "Б"}, {"3", "В"}} {
		if err := tbl.UpsertRow(row[0], row); err != nil {
			t.Fatal(err)
		}
	}

	keep := map[string]struct{}{"1": {}, "3": {}}
	if err := tbl.DeleteMissing(keep); err != nil {
		t.Fatal(err)
	}

	recs, err := tbl.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 {
		t.Fatalf("ожидали 2 строки после зачистки, получили %d", len(recs))
	}
	for _, r := range recs {
		if r["ID"] == "2" {
			t.Fatalf("строка с ключом 2 должна быть удалена: %v", recs)
		}
	}
}

func TestExcelTable_ClearKeepsHeader(t *testing.T) {
	c := newTestClient(t)
	tbl, err := c.GetOrCreateTable("Users", []string{"ID", "Name"})
	if err != nil {
		t.Fatal(err)
	}
	if err := tbl.AppendRow([]string{"1", "Иванов"}); err != nil {
		t.Fatal(err)
	}
	if err := tbl.Clear(); err != nil {
		t.Fatal(err)
	}
	recs, err := tbl.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 0 {
		t.Fatalf("после Clear данных быть не должно: %v", recs)
	}
}

func TestExcelClient_FlushAndReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mirror.xlsx")

	c, err := OpenExcel(path)
	if err != nil {
		t.Fatal(err)
	}
	tbl, err := c.GetOrCreateTable("Users", []string{"ID", "Name"})
	if err != nil {
		t.Fatal(err)
	}
	if err := tbl.UpsertRow("1", []string{"1", "Иванов"}); err != nil {
		t.Fatal(err)
	}
	if err := c.Flush(); err != nil {
		t.Fatal(err)
	}

	reopened, err := OpenExcel(path)
	if err != nil {
		t.Fatal(err)
	}
	tbl2, err := reopened.GetOrCreateTable("Users", []string{"ID", "Name"})
	if err != nil {
		t.Fatal(err)
	}
	recs, err := tbl2.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || recs[0]["Name"] != "Иванов" {
		t.Fatalf("после перечитывания книга должна содержать строку: %v", recs)
	}
}
