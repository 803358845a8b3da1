package models

import (
	"github.com/erp/stockledger/internal/domain/identity"
	"gorm.io/datatypes"
)

// TenantModel is the persistence model for the Tenant aggregate root.
// Tenants are global rows: the table has no tenant_id column, so the
// isolation callbacks leave it alone.
type TenantModel struct {
	AggregateModel
	Code     string                `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name     string                `gorm:"type:varchar(200);not null"`
	Domain   string                `gorm:"type:varchar(200);index"`
	Status   identity.TenantStatus `gorm:"type:varchar(20);not null;default:'active';index"`
	Currency string                `gorm:"type:varchar(3);not null;default:'USD'"`
	Features datatypes.JSONType[map[string]bool] `gorm:"not null"`
}

// TableName returns the table name for GORM
func (TenantModel) TableName() string {
	return "tenants"
}

func (m *TenantModel) ToDomain() *identity.Tenant {
	features := m.Features.Data()
	if features == nil {
		features = map[string]bool{}
	}
	return &identity.Tenant{
		BaseAggregateRoot: m.aggregateRoot(),
		Code:              m.Code,
		Name:              m.Name,
		Domain:            m.Domain,
		Status:            m.Status,
		Settings:          identity.TenantSettings{Currency: m.Currency, Features: features},
	}
}

func (m *TenantModel) FromDomain(t *identity.Tenant) {
	m.AggregateModel = aggregateModelOf(t.BaseAggregateRoot)
	m.Code = t.Code
	m.Name = t.Name
	m.Domain = t.Domain
	m.Status = t.Status
	m.Currency = t.Settings.Currency
	features := t.Settings.Features
	if features == nil {
		features = map[string]bool{}
	}
	m.Features = datatypes.NewJSONType(features)
}

func TenantModelFromDomain(t *identity.Tenant) *TenantModel {
	m := &TenantModel{}
	m.FromDomain(t)
	return m
}
