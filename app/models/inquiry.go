package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	InquiryStatusSent      = "sent"
	InquiryStatusContacted = "contacted"
	InquiryStatusCompleted = "completed"
	InquiryStatusCancelled = "cancelled"
)

// Inquiry is one customer request addressed to one or more companies. The set
// of addressed companies lives only in inquiry_companies.
type Inquiry struct {
	ID            string    `gorm:"type:char(36);primaryKey" json:"id"`
	CustomerName  string    `gorm:"type:varchar(200);not null" json:"customerName"`
	CustomerEmail string    `gorm:"type:varchar(200);not null;index" json:"customerEmail"`
	CustomerPhone string    `gorm:"type:varchar(30);not null" json:"customerPhone"`
	Message       string    `gorm:"type:text;not null" json:"message"`
	Status        string    `gorm:"type:varchar(20);not null;default:'sent';index" json:"status"`
	CreatedAt     time.Time `gorm:"autoCreateTime;index" json:"createdAt"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updatedAt"`

	InquiryCompanies []InquiryCompany `gorm:"foreignKey:InquiryID;constraint:OnDelete:CASCADE" json:"-"`
}

func (i *Inquiry) BeforeCreate(tx *gorm.DB) error {
	ensureID(&i.ID)
	return nil
}

// SelectedItems derives the addressed company ids from the loaded join rows.
func (i *Inquiry) SelectedItems() []string {
	ids := make([]string, 0, len(i.InquiryCompanies))
	for _, ic := range i.InquiryCompanies {
		ids = append(ids, ic.CompanyID)
	}
	return ids
}

// InquiryCompany links an inquiry to one addressed company.
type InquiryCompany struct {
	ID        string    `gorm:"type:char(36);primaryKey" json:"id"`
	InquiryID string    `gorm:"type:char(36);not null;index:ux_inquiry_companies_pair,unique,priority:1" json:"inquiryId"`
	CompanyID string    `gorm:"type:char(36);not null;index:ux_inquiry_companies_pair,unique,priority:2;index" json:"companyId"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`

	Company *Company `gorm:"foreignKey:CompanyID;constraint:OnDelete:CASCADE" json:"company,omitempty"`
}

func (ic *InquiryCompany) BeforeCreate(tx *gorm.DB) error {
	ensureID(&ic.ID)
	return nil
}

// IsValidInquiryStatus reports whether status is a known inquiry status.
func IsValidInquiryStatus(status string) bool {
	switch status {
	case InquiryStatusSent, InquiryStatusContacted, InquiryStatusCompleted, InquiryStatusCancelled:
		return true
	}
	return false
}

// CompanyRef is the short form of a company shown inside an inquiry.
type CompanyRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// InquiryDetail is the API representation of an inquiry with its derived
// selectedItems and, when loaded, the addressed companies.
type InquiryDetail struct {
	Inquiry
	SelectedItems []string     `json:"selectedItems"`
	Companies     []CompanyRef `json:"companies,omitempty"`
}

func NewInquiryDetail(i *Inquiry) InquiryDetail {
	d := InquiryDetail{Inquiry: *i, SelectedItems: i.SelectedItems()}
	for _, ic := range i.InquiryCompanies {
		if ic.Company != nil {
			d.Companies = append(d.Companies, CompanyRef{ID: ic.Company.ID, Name: ic.Company.Name, Email: ic.Company.Email})
		}
	}
	return d
}
