// Package repository define los contratos de persistencia del dominio:
// tenants, membresías (tenant_users), identidades, tokens de un solo uso
// e invitaciones. Las implementaciones viven en internal/store.
package repository
