package editor

import "fmt"

const (
	OpSetSectionTitle      = "setSectionTitle"
	OpSetSubsectionTitle   = "setSubsectionTitle"
	OpSetSubsectionContent = "setSubsectionContent"
	OpToggleFavorite       = "toggleFavorite"
	OpAddReference         = "addReference"
	OpRemoveReference      = "removeReference"
	OpMoveReference        = "moveReference"
)

// Operation is the wire form of one edit. Which fields are read depends on Op.
type Operation struct {
	Op       string    `json:"op"`
	Location Location  `json:"location"`
	Index    int       `json:"index"`
	To       *Location `json:"to,omitempty"`
	ToIndex  int       `json:"toIndex"`
	Value    string    `json:"value"`
}

func (e *Editor) Apply(op Operation) error {
	switch op.Op {
	case OpSetSectionTitle:
		return e.SetSectionTitle(op.Location.Section, op.Value)
	case OpSetSubsectionTitle:
		return e.SetSubsectionTitle(op.Location, op.Value)
	case OpSetSubsectionContent:
		return e.SetSubsectionContent(op.Location, op.Value)
	case OpToggleFavorite:
		return e.ToggleFavorite(op.Location, op.Index)
	case OpAddReference:
		return e.AddReference(op.Location, op.Value)
	case OpRemoveReference:
		return e.RemoveReference(op.Location, op.Index)
	case OpMoveReference:
		to := op.Location
		if op.To != nil {
			to = *op.To
		}
		return e.MoveReference(op.Location, op.Index, to, op.ToIndex)
	}
	return fmt.Errorf("%w: %q", ErrUnknownOp, op.Op)
}

// ApplyAll applies ops in order. On the first failure the working tree is
// rolled back to where it was before the batch.
func (e *Editor) ApplyAll(ops []Operation) error {
	before := e.data.Clone()
	dirty := e.dirty
	for i, op := range ops {
		if err := e.Apply(op); err != nil {
			e.data = before
			e.dirty = dirty
			return fmt.Errorf("operation %d: %w", i, err)
		}
	}
	return nil
}
