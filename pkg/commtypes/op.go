package commtypes

import "fmt"

type Op uint8

const (
	INSERT Op = iota
	DELETE
	UPDATE_DELETE
	UPDATE_INSERT
)

func (op Op) String() string {
	switch op {
	case INSERT:
		return "Insert"
	case DELETE:
		return "Delete"
	case UPDATE_DELETE:
		return "UpdateDelete"
	case UPDATE_INSERT:
		return "UpdateInsert"
	default:
		return fmt.Sprintf("Op(%d)", uint8(op))
	}
}

// IsRetract is true for Delete and UpdateDelete.
func (op Op) IsRetract() bool {
	return op == DELETE || op == UPDATE_DELETE
}

// Sign is +1 for Insert/UpdateInsert and -1 for Delete/UpdateDelete.
func (op Op) Sign() int64 {
	if op.IsRetract() {
		return -1
	}
	return 1
}
