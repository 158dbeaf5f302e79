package archive

import (
	"time"

	"github.com/shopspring/decimal"
)

// Money columns are stored as text so SQLite's numeric affinity never turns them
// into floating point.

type OrderRow struct {
	ID             int64 `gorm:"primaryKey;autoIncrement:false"`
	InvoiceNo      *int64
	Mode           string
	Status         string
	IsRead         bool
	OrderType      string
	CashierEmail   string
	Subtotal       decimal.Decimal `gorm:"type:text"`
	DiscountAmount decimal.Decimal `gorm:"type:text"`
	TotalAmount    decimal.Decimal `gorm:"type:text"`
	VatSales       decimal.Decimal `gorm:"type:text"`
	VatAmount      decimal.Decimal `gorm:"type:text"`
	VatExempt      decimal.Decimal `gorm:"type:text"`
	DueAmount      decimal.Decimal `gorm:"type:text"`
	DiscountType   string
	EligibleNames  string
	OscaIDs        string
	CashTendered   decimal.Decimal `gorm:"type:text"`
	TotalTendered  decimal.Decimal `gorm:"type:text"`
	ChangeAmount   decimal.Decimal `gorm:"type:text"`
	CreatedAt      time.Time
	FinalizedAt    *time.Time
	ReturnedAt     *time.Time
}

func (OrderRow) TableName() string { return "orders" }

type ItemRow struct {
	ID        int64 `gorm:"primaryKey;autoIncrement:false"`
	OrderID   int64 `gorm:"index"`
	Kind      string
	CatalogID int
	Name      string
	Size      string
	Quantity  int
	UnitPrice decimal.Decimal `gorm:"type:text"`
	EntryID   string
	ParentID  *int64
	IsVoid    bool
	CreatedAt time.Time
}

func (ItemRow) TableName() string { return "order_items" }

type PaymentRow struct {
	ID        int64 `gorm:"primaryKey;autoIncrement:false"`
	OrderID   int64 `gorm:"index"`
	SaleType  string
	Reference string
	Amount    decimal.Decimal `gorm:"type:text"`
}

func (PaymentRow) TableName() string { return "alternative_payments" }

type ShiftRow struct {
	ID              int64 `gorm:"primaryKey;autoIncrement:false"`
	Mode            string
	CashierEmail    string
	CashInAmount    decimal.Decimal  `gorm:"type:text"`
	CashOutAmount   *decimal.Decimal `gorm:"type:text"`
	ManagerInEmail  string
	ManagerOutEmail *string
	TsIn            time.Time
	TsOut           *time.Time
}

func (ShiftRow) TableName() string { return "shifts" }

type UserLogRow struct {
	ID           int64 `gorm:"primaryKey;autoIncrement:false"`
	ShiftID      *int64
	Mode         string
	CashierEmail string
	ManagerEmail string
	Action       string
	Amount       decimal.Decimal `gorm:"type:text"`
	CreatedAt    time.Time
}

func (UserLogRow) TableName() string { return "user_logs" }

// InfoRow records the terminal and counters the snapshot was taken under.
type InfoRow struct {
	ID              uint `gorm:"primaryKey"`
	Mode            string
	ResetNo         int64
	TakenAt         time.Time
	RegisteredName  string
	PosSerialNumber string
	MinNumber       string
	CarriedIn       decimal.Decimal `gorm:"type:text"`
	CarriedOut      decimal.Decimal `gorm:"type:text"`
}

func (InfoRow) TableName() string { return "snapshot_info" }

type JournalRow struct {
	ID          int64 `gorm:"primaryKey;autoIncrement:false"`
	EntryNo     int64 `gorm:"index"`
	EntryLineNo int
	EntryName   string
	AccountName string
	Description string
	Reference   string
	Status      string
	Debit       decimal.Decimal `gorm:"type:text"`
	Credit      decimal.Decimal `gorm:"type:text"`
	QtyOut      int
	Price       decimal.Decimal `gorm:"type:text"`
	Vatable     decimal.Decimal `gorm:"type:text"`
	SubTotal    decimal.Decimal `gorm:"type:text"`
	EntryDate   time.Time
}

func (JournalRow) TableName() string { return "account_journal" }
