package kvstore

import (
	"fmt"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// StoreFactory is a function type that creates a new (unmounted) store.
// This is used to abstract the creation of the backing engine from the
// code that operates on the store.
type StoreFactory func() IKVStore

// IKVStore is the generic interface for a durable, namespaced key-value
// store. Keys live in named sections; a record is addressed by the pair
// (section, key).
//
// All write operations are durable before they return: a power loss after a
// successful return must not lose the write, a power loss before it must
// leave the prior state intact.
//
// A store handle is exclusively owned between Mount and Unmount. Concurrent
// use of two handles for the same path within one process is rejected at
// Mount time.
type IKVStore interface {
	// Mount opens the backing storage area, creating it if absent.
	// Returns an *Error with RetCIOError if the path is inaccessible or
	// corrupt, and RetCLocked if the store is already mounted.
	Mount() error
	// Unmount releases all resources. Safe to call only after all pending
	// transactions have returned.
	Unmount() error
	// Get returns the value stored under (section, key). The boolean return
	// value indicates whether the record exists.
	Get(section, key string) (value []byte, found bool, err error)
	// Put durably writes a single record. Equivalent to applying a
	// one-operation transaction.
	Put(section, key string, value []byte) error
	// Apply atomically applies all operations of the transaction: either
	// every write lands durably or none do, even across a crash.
	Apply(tx *Transaction) error
	// ListKeys returns all keys of a section in ascending lexicographic
	// order. Zero-padded numeric keys therefore come back in ascending
	// numeric order.
	ListKeys(section string) (keys []string, err error)
	// Info returns metadata about the mounted store.
	Info() (info StoreInfo)
}

// StoreInfo describes a mounted store.
type StoreInfo struct {
	Path    string         `json:"path"`
	Engine  Implementation `json:"engine"`
	Mounted bool           `json:"mounted"`
}

type Implementation string

const (
	ImplPebble Implementation = "pebble"
)

// --------------------------------------------------------------------------
// Transactions
// --------------------------------------------------------------------------

// OpKind selects the operation a transaction entry performs. The store
// exposes its write capabilities as a tagged enum rather than as distinct
// transaction types.
type OpKind uint8

const (
	OpPut OpKind = iota
	OpErase
)

// Op is a single operation inside a Transaction.
type Op struct {
	Kind    OpKind
	Section string
	Key     string
	Value   []byte
}

// Transaction is an ordered batch of operations applied atomically via
// IKVStore.Apply. The zero value is an empty, usable transaction.
type Transaction struct {
	Ops []Op
}

// NewTransaction creates an empty transaction.
func NewTransaction() *Transaction {
	return &Transaction{}
}

// Put appends a write of value under (section, key).
func (t *Transaction) Put(section, key string, value []byte) *Transaction {
	t.Ops = append(t.Ops, Op{Kind: OpPut, Section: section, Key: key, Value: value})
	return t
}

// Erase appends a removal of (section, key). Erasing an absent record is
// not an error.
func (t *Transaction) Erase(section, key string) *Transaction {
	t.Ops = append(t.Ops, Op{Kind: OpErase, Section: section, Key: key})
	return t
}

// Empty returns whether the transaction contains no operations.
func (t *Transaction) Empty() bool {
	return len(t.Ops) == 0
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
}

// Error implements the error interface.
func (e *Error) Error() string {
	errorCode := ""
	switch e.Code {
	case RetCIOError:
		errorCode = "IOError"
	case RetCLocked:
		errorCode = "Locked"
	case RetCClosed:
		errorCode = "Closed"
	case RetCInvalidOperation:
		errorCode = "InvalidOperation"
	default:
		errorCode = "Unknown"
	}

	return fmt.Sprintf("KVStoreError (code %s): %s", errorCode, e.Msg)
}

// NewError creates a new Error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// IsCode reports whether err is a *Error carrying the given code.
func IsCode(err error, code RetCode) bool {
	if e, ok := err.(*Error); ok {
		return e.Code == code
	}
	return false
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess          RetCode = iota // 0: Operation executed successfully.
	RetCIOError                         // 1: Backing storage is unreadable or unwritable.
	RetCLocked                          // 2: Store is already mounted (this process or another).
	RetCClosed                          // 3: Operation on an unmounted store handle.
	RetCInvalidOperation                // 4: Invalid operation.
)
