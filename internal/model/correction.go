package model

import "time"

// Correction is the audit record of a user reassigning a transaction's
// category. The full history doubles as the classifier's training feedback.
type Correction struct {
	CorrectedAt         time.Time `json:"correctedAt"`
	TransactionID       string    `json:"transactionId"`
	MerchantNormalized  string    `json:"merchantNormalized"`
	Note                string    `json:"note,omitempty"`
	ID                  int64     `json:"id"`
	UserID              int64     `json:"userId"`
	OriginalCategoryID  int       `json:"originalCategoryId"`
	CorrectedCategoryID int       `json:"correctedCategoryId"`
}
