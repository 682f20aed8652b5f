package router

import "github.com/erp/stockengine/internal/interfaces/http/handler"

// InventoryHandlers bundles the handlers mounted under /inventory
type InventoryHandlers struct {
	Balances     *handler.BalanceHandler
	Ledger       *handler.LedgerHandler
	Transfers    *handler.TransferHandler
	Adjustments  *handler.AdjustmentHandler
	Reservations *handler.ReservationHandler
	BOM          *handler.BOMHandler
}

// NewInventoryRoutes builds the /inventory route group
func NewInventoryRoutes(h InventoryHandlers) *DomainGroup {
	inventory := NewDomainGroup("inventory", "/inventory")

	inventory.Group("balances", "/balances").
		GET("", h.Balances.List).
		GET("/lookup", h.Balances.Get).
		GET("/below-minimum", h.Balances.BelowMinimum).
		PUT("/levels", h.Balances.SetLevels)

	inventory.Group("stock", "/stock").
		POST("/increase", h.Balances.Increase).
		POST("/decrease", h.Balances.Decrease).
		POST("/receive", h.Balances.Receive)

	inventory.Group("ledger", "/ledger").
		GET("", h.Ledger.Query).
		GET("/documents/:type/:id", h.Ledger.ByDocument).
		GET("/timeline", h.Ledger.Timeline).
		GET("/latest", h.Ledger.Latest).
		GET("/consistency", h.Ledger.Consistency)

	inventory.Group("transfers", "/transfers").
		POST("", h.Transfers.Create).
		GET("", h.Transfers.List).
		GET("/:id", h.Transfers.Get).
		POST("/:id/cancel", h.Transfers.Cancel)

	inventory.Group("adjustments", "/adjustments").
		POST("", h.Adjustments.Create).
		GET("", h.Adjustments.List).
		GET("/frequent", h.Adjustments.Frequent)

	inventory.Group("reservations", "/reservations").
		POST("", h.Reservations.Create).
		GET("", h.Reservations.List).
		POST("/sweep", h.Reservations.Sweep).
		GET("/:id", h.Reservations.Get).
		POST("/:id/release", h.Reservations.Release).
		POST("/:id/fulfill", h.Reservations.Fulfill)

	inventory.Group("bom", "/bom/:parent_id").
		GET("/components", h.BOM.Components).
		PUT("/components/:component_id", h.BOM.SetComponent).
		DELETE("/components/:component_id", h.BOM.RemoveComponent).
		GET("/available-kits", h.BOM.AvailableKits).
		POST("/assemble", h.BOM.Assemble).
		POST("/disassemble", h.BOM.Disassemble)

	return inventory
}
