package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/cashflow/backend/internal/domain/warehouse"
	"github.com/cashflow/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormWarehouseWriter loads ETL batches into the warehouse tables
type GormWarehouseWriter struct {
	db        *Database
	batchSize int
}

// NewGormWarehouseWriter creates a new GormWarehouseWriter
func NewGormWarehouseWriter(db *Database, batchSize int) *GormWarehouseWriter {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &GormWarehouseWriter{db: db, batchSize: batchSize}
}

// Ensure GormWarehouseWriter implements warehouse.Writer
var _ warehouse.Writer = (*GormWarehouseWriter)(nil)

// Replace upserts the dimensions and swaps the fact tables for the batch rows
// in one transaction. Nothing is written if any step fails.
func (w *GormWarehouseWriter) Replace(ctx context.Context, batch *warehouse.Batch) (warehouse.LoadStats, error) {
	started := time.Now()

	names := make(map[string]string, 6)
	for _, t := range []string{
		models.TableSuppliers, models.TableCustomers, models.TableStores, models.TableNatures,
		models.TablePayables, models.TableReceivables,
	} {
		q, err := w.db.qualified(t)
		if err != nil {
			return warehouse.LoadStats{}, err
		}
		names[t] = q
	}

	err := w.db.Transaction(ctx, func(tx *gorm.DB) error {
		if err := w.upsertDimensions(tx, names, batch); err != nil {
			return err
		}
		for _, t := range []string{models.TablePayables, models.TableReceivables} {
			if err := tx.Exec("DELETE FROM " + names[t]).Error; err != nil {
				return fmt.Errorf("clear %s: %w", t, err)
			}
		}
		if len(batch.Payables) > 0 {
			rows := toPayableFacts(batch.Payables)
			if err := tx.Table(names[models.TablePayables]).CreateInBatches(rows, w.batchSize).Error; err != nil {
				return fmt.Errorf("insert payables: %w", err)
			}
		}
		if len(batch.Receivables) > 0 {
			rows := toReceivableFacts(batch.Receivables)
			if err := tx.Table(names[models.TableReceivables]).CreateInBatches(rows, w.batchSize).Error; err != nil {
				return fmt.Errorf("insert receivables: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return warehouse.LoadStats{}, err
	}

	return warehouse.LoadStats{
		Suppliers:   batch.Suppliers.Len(),
		Customers:   batch.Customers.Len(),
		Stores:      batch.Stores.Len(),
		Natures:     batch.Natures.Len(),
		Payables:    len(batch.Payables),
		Receivables: len(batch.Receivables),
		Duration:    time.Since(started),
	}, nil
}

func (w *GormWarehouseWriter) upsertDimensions(tx *gorm.DB, names map[string]string, batch *warehouse.Batch) error {
	var suppliers []models.Supplier
	for _, m := range batch.Suppliers.Members() {
		suppliers = append(suppliers, models.Supplier{SupplierID: m.ID, Name: m.Name})
	}
	var customers []models.Customer
	for _, m := range batch.Customers.Members() {
		customers = append(customers, models.Customer{CustomerID: m.ID, Name: m.Name})
	}
	var stores []models.Store
	for _, m := range batch.Stores.Members() {
		stores = append(stores, models.Store{StoreID: m.ID, Description: m.Name})
	}
	var natures []models.Nature
	for _, m := range batch.Natures.Members() {
		natures = append(natures, models.Nature{NatureID: m.ID, Description: m.Name})
	}

	steps := []struct {
		table string
		key   string
		name  string
		rows  any
		n     int
	}{
		{models.TableSuppliers, "fornecedorid", "nome_fornec", suppliers, len(suppliers)},
		{models.TableCustomers, "clienteid", "nome_cliente", customers, len(customers)},
		{models.TableStores, "lojaid", "descricao", stores, len(stores)},
		{models.TableNatures, "naturezaid", "descricao", natures, len(natures)},
	}
	for _, s := range steps {
		if s.n == 0 {
			continue
		}
		// Exports rarely carry nature descriptions; keep whatever the table already has.
		onConflict := clause.OnConflict{
			Columns:   []clause.Column{{Name: s.key}},
			DoUpdates: clause.AssignmentColumns([]string{s.name}),
		}
		if s.table == models.TableNatures {
			onConflict = clause.OnConflict{Columns: []clause.Column{{Name: s.key}}, DoNothing: true}
		}
		err := tx.Table(names[s.table]).Clauses(onConflict).CreateInBatches(s.rows, w.batchSize).Error
		if err != nil {
			return fmt.Errorf("upsert %s: %w", s.table, err)
		}
	}
	return nil
}

func dateText(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.DateOnly)
	return &s
}

func toPayableFacts(in []warehouse.Payable) []models.PayableFact {
	out := make([]models.PayableFact, len(in))
	for i, p := range in {
		out[i] = models.PayableFact{
			DocumentNumber: p.DocumentNumber,
			Installment:    p.Installment,
			Type:           p.Type,
			NatureID:       p.NatureID,
			SupplierID:     p.SupplierID,
			Amount:         p.Amount,
			IssueDate:      dateText(p.IssueDate),
			DueDate:        dateText(p.DueDate),
			ActualDueDate:  dateText(p.ActualDueDate),
		}
	}
	return out
}

func toReceivableFacts(in []warehouse.Receivable) []models.ReceivableFact {
	out := make([]models.ReceivableFact, len(in))
	for i, r := range in {
		out[i] = models.ReceivableFact{
			DocumentNumber: r.DocumentNumber,
			Installment:    r.Installment,
			Type:           r.Type,
			NatureID:       r.NatureID,
			CustomerID:     r.CustomerID,
			StoreID:        r.StoreID,
			Amount:         r.Amount,
			IssueDate:      dateText(r.IssueDate),
			DueDate:        dateText(r.DueDate),
			ActualDueDate:  dateText(r.ActualDueDate),
		}
	}
	return out
}
