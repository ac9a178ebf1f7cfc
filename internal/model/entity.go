// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package model

// Entity is implemented by every persisted domain type. The parent id is the
// owning aggregate: the campaign of a test or report, the environment of a
// variable.
type Entity interface {
	GetID() string
	SetID(id string)
	GetParentID() string
}
