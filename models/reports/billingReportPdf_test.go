package reports

import (
	"strings"
	"testing"

	"github.com/mmdatafocus/boletos_backend/models"
	"github.com/shopspring/decimal"
)

func TestReportRowCells(t *testing.T) {
	lotName := "Lote Norte"
	cases := []struct {
		name string
		view *BillingRecordView
		want []string
	}{
		{
			name: "lot name and short line",
			view: &BillingRecordView{
				BillingRecord: models.BillingRecord{ID: 3, PayerName: "Ana", LotId: 7, Amount: decimal.RequireFromString("1234.5"), PaymentLine: "123"},
				LotName:       &lotName,
			},
			want: []string{"3", "Ana", "Lote Norte", "1.234,50", "123"},
		},
		{
			name: "missing lot falls back to id",
			view: &BillingRecordView{
				BillingRecord: models.BillingRecord{ID: 4, PayerName: "Bia", LotId: 9, Amount: decimal.NewFromInt(10), PaymentLine: strings.Repeat("9", 47)},
			},
			want: []string{"4", "Bia", "9", "10,00", strings.Repeat("9", 40) + "..."},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := reportRowCells(tc.view)
			if strings.Join(got, "|") != strings.Join(tc.want, "|") {
				t.Fatalf("cells = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestBillingFilterDescribe(t *testing.T) {
	payer := "Maria"
	minAmount := decimal.RequireFromString("10.5")
	lines := BillingFilter{PayerName: &payer, MinAmount: &minAmount}.describe()
	if len(lines) != 2 || lines[0] != "Nome do sacado: Maria" || lines[1] != "Valor inicial: 10,50" {
		t.Fatalf("lines = %q", lines)
	}
	if len(BillingFilter{}.describe()) != 0 {
		t.Fatalf("empty filter described")
	}
}
