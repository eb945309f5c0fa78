package core

import "contigalias/pkg/domain"

type (
	EntityType      = domain.EntityType
	SequenceRole    = domain.SequenceRole
	Assembly        = domain.Assembly
	Sequence        = domain.Sequence
	Change          = domain.Change
	Action          = domain.Action
	Result          = domain.Result
	Transaction     = domain.Transaction
	PersistentStore = domain.PersistentStore
)

const (
	EntityAssembly = domain.EntityAssembly
	EntitySequence = domain.EntitySequence
)

const (
	RoleChromosome = domain.RoleChromosome
	RoleScaffold   = domain.RoleScaffold
)

const (
	ActionCreate = domain.ActionCreate
	ActionUpdate = domain.ActionUpdate
	ActionDelete = domain.ActionDelete
)
