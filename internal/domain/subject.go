package domain

import (
	"time"
)

// SubjectStatus is the lifecycle state of a welfare beneficiary record.
type SubjectStatus string

const (
	SubjectActive    SubjectStatus = "active"
	SubjectSuspended SubjectStatus = "suspended"
	SubjectFlagged   SubjectStatus = "flagged"
)

// VerificationStatus tracks identity verification of a subject.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationVerified VerificationStatus = "verified"
	VerificationRejected VerificationStatus = "rejected"
)

// Card classification under the public distribution scheme.
const (
	CardTypeBPL = "BPL" // below poverty line
	CardTypeAPL = "APL" // above poverty line
	CardTypeAAY = "AAY" // Antyodaya Anna Yojana
)

// Subject is a registered welfare beneficiary.
type Subject struct {
	ID         string `json:"id"`
	NationalID string `json:"nationalId"`
	Name       string `json:"name"`
	Address    string `json:"address"`
	District   string `json:"district"`
	State      string `json:"state"`
	Phone      string `json:"phone,omitempty"`

	// Household details used by the screening rules
	FamilySize     int     `json:"familySize"`
	DeclaredIncome float64 `json:"declaredIncome"`
	CardType       string  `json:"cardType"`

	Status       SubjectStatus      `json:"status"`
	Verification VerificationStatus `json:"verification"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CardStatus is the state of an entitlement card.
type CardStatus string

const (
	CardActive   CardStatus = "active"
	CardInactive CardStatus = "inactive"
)

// Card is an entitlement card issued to a subject.
// A subject holding more than one active card is an anomaly.
type Card struct {
	ID        string     `json:"id"`
	Number    string     `json:"number"`
	SubjectID string     `json:"subjectId"`
	Type      string     `json:"type"`
	Status    CardStatus `json:"status"`
	IssuedAt  time.Time  `json:"issuedAt"`
}

// Shop is a fair-price distribution outlet.
type Shop struct {
	ID       string `json:"id"`
	Code     string `json:"code"`
	Name     string `json:"name"`
	District string `json:"district"`
	State    string `json:"state"`
	Owner    string `json:"owner,omitempty"`
}

// Admin is an operator account for the review console.
type Admin struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}
