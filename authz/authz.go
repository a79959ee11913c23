// Package authz holds the static role, action and data-domain access
// matrices gating every workflow operation.
package authz

import (
	"fmt"

	"sardraft-backend/models"
)

// Action represents a workflow operation subject to authorization
type Action string

const (
	ActionView        Action = "VIEW"
	ActionCreateCase  Action = "CREATE_CASE"
	ActionGenerate    Action = "GENERATE"
	ActionEdit        Action = "EDIT"
	ActionSubmit      Action = "SUBMIT"
	ActionApprove     Action = "APPROVE"
	ActionReject      Action = "REJECT"
	ActionFile        Action = "FILE"
	ActionViewAudit   Action = "VIEW_AUDIT"
	ActionExport      Action = "EXPORT"
	ActionManageUsers Action = "MANAGE_USERS"
)

// Domain represents a class of data accessed by an operation
type Domain string

const (
	DomainCase        Domain = "case"
	DomainCustomer    Domain = "customer"
	DomainTransaction Domain = "transaction"
	DomainAudit       Domain = "audit"
	DomainUser        Domain = "user"
)

// Error is returned when an actor lacks a permission or domain grant.
type Error struct {
	Actor  string
	Role   models.Role
	Action Action
	Domain Domain
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("authorization denied for %s (%s): %s on %s: %s",
		e.Actor, e.Role, e.Action, e.Domain, e.Reason)
}

// permissions maps each role to the actions it may perform. Absence means
// denial; there is no wildcard.
var permissions = map[models.Role]map[Action]bool{
	models.RoleAdmin: {
		ActionView:        true,
		ActionCreateCase:  true,
		ActionGenerate:    true,
		ActionEdit:        true,
		ActionSubmit:      true,
		ActionApprove:     true,
		ActionReject:      true,
		ActionFile:        true,
		ActionViewAudit:   true,
		ActionExport:      true,
		ActionManageUsers: true,
	},
	models.RoleSupervisor: {
		ActionView:       true,
		ActionCreateCase: true,
		ActionGenerate:   true,
		ActionEdit:       true,
		ActionSubmit:     true,
		ActionApprove:    true,
		ActionReject:     true,
		ActionFile:       true,
		ActionViewAudit:  true,
		ActionExport:     true,
	},
	models.RoleAnalyst: {
		ActionView:       true,
		ActionCreateCase: true,
		ActionGenerate:   true,
		ActionEdit:       true,
		ActionSubmit:     true,
	},
	models.RoleReadOnly: {
		ActionView: true,
	},
}

// domainAccess maps each data domain to the roles allowed to read it.
// The audit domain is deliberately closed to analysts: reviewers see the
// trail, authors do not.
var domainAccess = map[Domain]map[models.Role]bool{
	DomainCase: {
		models.RoleAdmin:      true,
		models.RoleSupervisor: true,
		models.RoleAnalyst:    true,
		models.RoleReadOnly:   true,
	},
	DomainCustomer: {
		models.RoleAdmin:      true,
		models.RoleSupervisor: true,
		models.RoleAnalyst:    true,
		models.RoleReadOnly:   true,
	},
	DomainTransaction: {
		models.RoleAdmin:      true,
		models.RoleSupervisor: true,
		models.RoleAnalyst:    true,
	},
	DomainAudit: {
		models.RoleAdmin:      true,
		models.RoleSupervisor: true,
	},
	DomainUser: {
		models.RoleAdmin: true,
	},
}

// Authorize checks that the actor's role grants both the action and access
// to the data domain the action touches. A zero-value actor is denied.
func Authorize(actor models.Actor, action Action, domain Domain) error {
	if actor.Username == "" || !models.ValidRole(actor.Role) {
		return &Error{
			Actor:  actor.Username,
			Role:   actor.Role,
			Action: action,
			Domain: domain,
			Reason: "unknown actor or role",
		}
	}
	if !permissions[actor.Role][action] {
		return &Error{
			Actor:  actor.Username,
			Role:   actor.Role,
			Action: action,
			Domain: domain,
			Reason: "role does not grant action",
		}
	}
	if !domainAccess[domain][actor.Role] {
		return &Error{
			Actor:  actor.Username,
			Role:   actor.Role,
			Action: action,
			Domain: domain,
			Reason: "role does not grant data domain",
		}
	}
	return nil
}

// Can reports whether the actor would pass Authorize, without the error.
func Can(actor models.Actor, action Action, domain Domain) bool {
	return Authorize(actor, action, domain) == nil
}
