package myers

// Reference contains simple, unbanded implementations used for testing and
// verification of the banded kernel.
type Reference struct{}

// EditDistance returns the unit-cost global edit distance between query and
// target with the full O(n×m) recurrence, keeping two rows.
func (Reference) EditDistance(query, target []byte) int {
	prev := make([]int, len(target)+1)
	cur := make([]int, len(target)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(query); i++ {
		cur[0] = i
		for j := 1; j <= len(target); j++ {
			sub := prev[j-1]
			if query[i-1] != target[j-1] {
				sub++
			}
			cur[j] = min(sub, prev[j]+1, cur[j-1]+1)
		}
		prev, cur = cur, prev
	}
	return prev[len(target)]
}

// Apply replays ops over query and target and returns the number of edits
// and whether the operations consume both sequences exactly with matches
// only on equal bases.
func (Reference) Apply(query, target []byte, ops []Op) (int, bool) {
	i, j, cost := 0, 0, 0
	for _, op := range ops {
		switch op {
		case Match, Mismatch:
			if i >= len(query) || j >= len(target) {
				return cost, false
			}
			if (query[i] == target[j]) != (op == Match) {
				return cost, false
			}
			i++
			j++
		case Insertion:
			if i >= len(query) {
				return cost, false
			}
			i++
		case Deletion:
			if j >= len(target) {
				return cost, false
			}
			j++
		default:
			return cost, false
		}
		cost += op.Cost()
	}
	return cost, i == len(query) && j == len(target)
}
