// Package routes wires the gateway's HTTP surface: session lifecycle and
// webhook subscriptions under the admin/API-key split, message send under
// the Admission Pipeline, wallet and subscription management for billing.
package routes
