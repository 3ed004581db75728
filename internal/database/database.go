// Package database records the local history of push and pull operations.
package database

import "vsync/internal/model"

// Database stores SyncOperation records.
type Database interface {
	// CreateOperation inserts a running operation and returns it with ID set.
	CreateOperation(opID, verb, vaultName string) (*model.SyncOperation, error)

	// FinishOperation marks an operation succeeded or failed.
	FinishOperation(id int64, status, detail string) error

	// ListOperations returns up to limit operations, newest first.
	ListOperations(limit int) ([]*model.SyncOperation, error)

	// Close closes the database connection.
	Close() error
}

// NopDatabase discards every record. Used when history is disabled.
type NopDatabase struct{}

func (NopDatabase) CreateOperation(opID, verb, vaultName string) (*model.SyncOperation, error) {
	return &model.SyncOperation{OpID: opID, Verb: verb, VaultName: vaultName, Status: model.StatusRunning}, nil
}

func (NopDatabase) FinishOperation(int64, string, string) error { return nil }

func (NopDatabase) ListOperations(int) ([]*model.SyncOperation, error) { return nil, nil }

func (NopDatabase) Close() error { return nil }
