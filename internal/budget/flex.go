package budget

// ResolveFlexGroup computes the shared pool state for a flex-budget
// parent. The parent's own assigned figure is the pool size for the
// period, not a spending target; the unallocated balance is the live
// "how much pool is left" figure, decreasing as any child spends
// regardless of that child's individual assignment.
//
// Returns nil when the category is not a flex parent or has no children.
func ResolveFlexGroup(parent Category, parentState CategoryState, children []CategoryState) *FlexGroup {
	if !parent.IsFlexBudget || len(children) == 0 {
		return nil
	}
	var childActivity int64
	for _, child := range children {
		childActivity += child.Activity
	}
	available := parentState.Rollover + parentState.Assigned - childActivity
	return &FlexGroup{
		ParentID:           parent.ID,
		ParentAvailable:    available,
		UnallocatedBalance: available,
	}
}
