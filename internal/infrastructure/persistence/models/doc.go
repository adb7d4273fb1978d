// Package models contains the GORM models of the cash-flow warehouse tables.
//
// The layout follows the star schema the ERP exports are loaded into: one
// fact table per direction (fato_apagar for payables, fato_areceber for
// receivables) and small dimension tables for suppliers, customers, stores
// and natures. Date columns hold YYYY-MM-DD text on input so postgres and
// sqlite compare them the same way.
package models
