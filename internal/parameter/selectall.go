package parameter

// ReconcileSelectAll returns the checked state after the item at changed
// was toggled. checked holds the state after the toggle, with the synthetic
// "select all" item at index 0. Toggling the synthetic item applies its state
// to every real item; toggling a real item makes the synthetic item checked
// exactly when all real items are. The input is not modified.
func ReconcileSelectAll(checked []bool, changed int) []bool {
	out := make([]bool, len(checked))
	copy(out, checked)
	if len(out) < 2 || changed < 0 || changed >= len(out) {
		return out
	}

	if changed == 0 {
		for i := 1; i < len(out); i++ {
			out[i] = out[0]
		}
		return out
	}

	all := true
	for _, c := range out[1:] {
		if !c {
			all = false
			break
		}
	}
	out[0] = all
	return out
}

// SelectedIndexes maps checked state back to allowed-value indexes, skipping
// the synthetic item when present
func SelectedIndexes(checked []bool, withSelectAll bool) []int {
	start := 0
	if withSelectAll {
		start = 1
	}
	var out []int
	for i := start; i < len(checked); i++ {
		if checked[i] {
			out = append(out, i-start)
		}
	}
	return out
}
