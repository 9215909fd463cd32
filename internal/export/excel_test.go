package export

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"

	"insaat/internal/core"
)

type stubResolver struct {
	projects   map[string]string
	recipients map[string]string
	categories map[string]string
}

func (r stubResolver) ProjectName(id string) (string, bool) {
	n, ok := r.projects[id]
	return n, ok
}

func (r stubResolver) RecipientInfo(id string) (string, core.RecipientType, bool) {
	n, ok := r.recipients[id]
	return n, core.RecipientContractor, ok
}

func (r stubResolver) CategoryName(id string) (string, bool) {
	n, ok := r.categories[id]
	return n, ok
}

func TestGenerate(t *testing.T) {
	res := stubResolver{
		projects:   map[string]string{"p1": "Tower A"},
		recipients: map[string]string{"r1": "Usta"},
		categories: map[string]string{"c1": "Labor"},
	}
	payments := []core.Payment{
		{
			Amount:      core.Money{Cents: 123450},
			Method:      core.MethodTransfer,
			PaymentDate: core.NewDate(2024, 3, 5),
			Status:      core.StatusPaid,
			ProjectID:   "p1",
			RecipientID: "r1",
			CategoryID:  "c1",
			Description: "progress payment",
		},
		{
			Amount:      core.Money{Cents: 5000},
			Method:      core.MethodCash,
			PaymentDate: core.NewDate(2024, 3, 6),
			Status:      core.StatusPaid,
			ProjectID:   "gone",
		},
	}

	data, err := NewGenerator().Generate(payments, res)
	if err != nil {
		t.Fatal(err)
	}

	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()

	rows, err := file.GetRows("Payments")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(rows))
	}
	if rows[0][0] != "Date" || rows[0][7] != "Amount" {
		t.Errorf("header row = %v", rows[0])
	}
	if rows[1][1] != "Tower A" || rows[1][2] != "Usta" || rows[1][4] != "Labor" {
		t.Errorf("resolved row = %v", rows[1])
	}
	if rows[2][1] != "-" {
		t.Errorf("dangling project must render as -, got %q", rows[2][1])
	}
	if rows[1][0] != "2024-03-05" {
		t.Errorf("date cell = %q", rows[1][0])
	}
}
