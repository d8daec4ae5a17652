package config

import (
	"context"
	"strings"

	"bitbucket.org/mmdatafocus/books_ledger/appctx"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TenantGuardPlugin adds `business_id = <tenant>` to every read, update and
// delete on a ledger table that has a business_id column, using the business
// in the statement context. Raw SQL is not rewritten.
type TenantGuardPlugin struct{}

func NewTenantGuardPlugin() *TenantGuardPlugin { return &TenantGuardPlugin{} }

func (p *TenantGuardPlugin) Name() string { return "tenant_guard" }

func (p *TenantGuardPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	for _, register := range []func() error{
		func() error { return cb.Query().Before("gorm:query").Register("tenant_guard:query", scopeToTenant) },
		func() error { return cb.Row().Before("gorm:row").Register("tenant_guard:row", scopeToTenant) },
		func() error { return cb.Update().Before("gorm:update").Register("tenant_guard:update", scopeToTenant) },
		func() error { return cb.Delete().Before("gorm:delete").Register("tenant_guard:delete", scopeToTenant) },
	} {
		if err := register(); err != nil {
			return err
		}
	}
	return nil
}

func scopeToTenant(db *gorm.DB) {
	stmt := db.Statement
	if stmt == nil || stmt.Schema == nil || stmt.Context == nil {
		return
	}
	businessId, ok := tenantOf(stmt.Context)
	if !ok || stmt.Schema.LookUpField("business_id") == nil {
		return
	}
	if where, ok := stmt.Clauses["WHERE"].Expression.(clause.Where); ok && filtersBusiness(where.Exprs) {
		return
	}
	stmt.AddClause(clause.Where{Exprs: []clause.Expression{
		clause.Eq{Column: clause.Column{Table: stmt.Table, Name: "business_id"}, Value: businessId},
	}})
}

// tenantOf reports the business to scope to; false when there is none or
// the caller opted out.
func tenantOf(ctx context.Context) (string, bool) {
	if skip, _ := appctx.Value[bool](ctx, appctx.SkipTenantScope); skip {
		return "", false
	}
	businessId, _ := appctx.Value[string](ctx, appctx.BusinessId)
	return businessId, businessId != ""
}

func filtersBusiness(exprs []clause.Expression) bool {
	for _, e := range exprs {
		switch v := e.(type) {
		case clause.Eq:
			if isBusinessColumn(v.Column) {
				return true
			}
		case clause.IN:
			if isBusinessColumn(v.Column) {
				return true
			}
		case clause.AndConditions:
			if filtersBusiness(v.Exprs) {
				return true
			}
		case clause.Expr:
			// Where("business_id = ?", ...) arrives as raw SQL.
			if strings.Contains(strings.ToLower(v.SQL), "business_id") {
				return true
			}
		}
	}
	return false
}

func isBusinessColumn(col any) bool {
	switch c := col.(type) {
	case string:
		return strings.EqualFold(c, "business_id")
	case clause.Column:
		return strings.EqualFold(c.Name, "business_id")
	}
	return false
}
