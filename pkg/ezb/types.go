package ezb

import "encoding/json"

// TransactionType is the target ledger's transaction type code.
type TransactionType int

const (
	TransactionTypeIncome   TransactionType = 2
	TransactionTypeExpense  TransactionType = 3
	TransactionTypeTransfer TransactionType = 4
)

// CategoryType is the target ledger's category type code.
type CategoryType int

const (
	CategoryTypeIncome   CategoryType = 1
	CategoryTypeExpense  CategoryType = 2
	CategoryTypeTransfer CategoryType = 3
)

// Default look of categories created by the importer.
const (
	DefaultCategoryIcon  = "1"
	DefaultCategoryColor = "8e8e93"
)

// RootParentID is the parent id of top level categories.
const RootParentID = "0"

type envelope struct {
	Success      bool            `json:"success"`
	Result       json.RawMessage `json:"result"`
	ErrorCode    int             `json:"errorCode,omitempty"`
	ErrorMessage string          `json:"errorMessage,omitempty"`
}

type Account struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Comment     string     `json:"comment"`
	Currency    string     `json:"currency,omitempty"`
	Hidden      bool       `json:"hidden,omitempty"`
	SubAccounts []*Account `json:"subAccounts,omitempty"`
}

type Category struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	ParentID      string       `json:"parentId"`
	Type          CategoryType `json:"type"`
	Icon          string       `json:"icon,omitempty"`
	Color         string       `json:"color,omitempty"`
	SubCategories []*Category  `json:"subCategories,omitempty"`
}

type NewCategory struct {
	Name     string       `json:"name"`
	Type     CategoryType `json:"type"`
	ParentID string       `json:"parentId"`
	Icon     string       `json:"icon"`
	Color    string       `json:"color"`
}

type Transaction struct {
	ID                   string          `json:"id"`
	Type                 TransactionType `json:"type"`
	Time                 int64           `json:"time"`
	UTCOffset            int             `json:"utcOffset"`
	CategoryID           string          `json:"categoryId"`
	SourceAccountID      string          `json:"sourceAccountId"`
	SourceAmount         int64           `json:"sourceAmount"`
	DestinationAccountID string          `json:"destinationAccountId,omitempty"`
	DestinationAmount    int64           `json:"destinationAmount,omitempty"`
	Comment              string          `json:"comment"`
}

// NewTransaction is the create payload. Amounts are minor units.
type NewTransaction struct {
	Type                 TransactionType `json:"type" yaml:"type"`
	Time                 int64           `json:"time" yaml:"time"`
	UTCOffset            int             `json:"utcOffset" yaml:"utcOffset"`
	CategoryID           string          `json:"categoryId" yaml:"categoryId"`
	TagIDs               []string        `json:"tagIds" yaml:"tagIds"`
	Comment              string          `json:"comment" yaml:"comment"`
	SourceAccountID      string          `json:"sourceAccountId" yaml:"sourceAccountId"`
	SourceAmount         int64           `json:"sourceAmount" yaml:"sourceAmount"`
	DestinationAccountID string          `json:"destinationAccountId,omitempty" yaml:"destinationAccountId,omitempty"`
	DestinationAmount    int64           `json:"destinationAmount,omitempty" yaml:"destinationAmount,omitempty"`
}

type transactionPage struct {
	Items []*Transaction `json:"items"`
}
