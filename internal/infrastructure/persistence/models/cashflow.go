package models

import "github.com/shopspring/decimal"

// Table names without schema qualification
const (
	TablePayables    = "fato_apagar"
	TableReceivables = "fato_areceber"
	TableSuppliers   = "dim_fornecedor"
	TableCustomers   = "dim_cliente"
	TableStores      = "dim_loja"
	TableNatures     = "dim_natureza"
)

// Supplier is a row of dim_fornecedor
type Supplier struct {
	SupplierID string `gorm:"column:fornecedorid;primaryKey;size:20"`
	Name       string `gorm:"column:nome_fornec;size:120"`
}

// TableName returns the unqualified table name
func (Supplier) TableName() string { return TableSuppliers }

// Customer is a row of dim_cliente
type Customer struct {
	CustomerID string `gorm:"column:clienteid;primaryKey;size:20"`
	Name       string `gorm:"column:nome_cliente;size:120"`
}

// TableName returns the unqualified table name
func (Customer) TableName() string { return TableCustomers }

// Store is a row of dim_loja
type Store struct {
	StoreID     string `gorm:"column:lojaid;primaryKey;size:20"`
	Description string `gorm:"column:descricao;size:120"`
}

// TableName returns the unqualified table name
func (Store) TableName() string { return TableStores }

// Nature is a row of dim_natureza, the ERP's financial classification code
type Nature struct {
	NatureID    string `gorm:"column:naturezaid;primaryKey;size:20"`
	Description string `gorm:"column:descricao;size:120"`
}

// TableName returns the unqualified table name
func (Nature) TableName() string { return TableNatures }

// PayableFact is a row of fato_apagar
type PayableFact struct {
	ID             uint64          `gorm:"column:id;primaryKey;autoIncrement"`
	DocumentNumber string          `gorm:"column:no_titulo;size:30;not null;index"`
	Installment    *string         `gorm:"column:parcela;size:10"`
	Type           string          `gorm:"column:tipo;size:10"`
	NatureID       *string         `gorm:"column:naturezaid;size:20"`
	SupplierID     *string         `gorm:"column:fornecedorid;size:20"`
	Amount         decimal.Decimal `gorm:"column:valor;type:numeric(15,2);not null"`
	IssueDate      *string         `gorm:"column:data_emissao;type:date;index"`
	DueDate        *string         `gorm:"column:data_vencimento;type:date"`
	ActualDueDate  *string         `gorm:"column:data_vencimento_real;type:date"`
}

// TableName returns the unqualified table name
func (PayableFact) TableName() string { return TablePayables }

// ReceivableFact is a row of fato_areceber
type ReceivableFact struct {
	ID             uint64          `gorm:"column:id;primaryKey;autoIncrement"`
	DocumentNumber string          `gorm:"column:no_titulo;size:30;not null;index"`
	Installment    *string         `gorm:"column:parcela;size:10"`
	Type           string          `gorm:"column:tipo;size:10"`
	NatureID       *string         `gorm:"column:naturezaid;size:20"`
	CustomerID     *string         `gorm:"column:clienteid;size:20"`
	StoreID        *string         `gorm:"column:lojaid;size:20"`
	Amount         decimal.Decimal `gorm:"column:valor;type:numeric(15,2);not null"`
	IssueDate      *string         `gorm:"column:data_emissao;type:date;index"`
	DueDate        *string         `gorm:"column:data_vencimento;type:date"`
	ActualDueDate  *string         `gorm:"column:data_vencimento_real;type:date"`
}

// TableName returns the unqualified table name
func (ReceivableFact) TableName() string { return TableReceivables }

// All lists every model, dimensions first, for AutoMigrate.
func All() []any {
	return []any{&Supplier{}, &Customer{}, &Store{}, &Nature{}, &PayableFact{}, &ReceivableFact{}}
}
