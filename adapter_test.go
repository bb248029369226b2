package reqkit

import "testing"

func TestMergePolicy_EvaluateDefaults(t *testing.T) {
	if !MergeAlways.evaluate() {
		t.Fatal("expected MergeAlways to evaluate true")
	}
	if MergeNever.evaluate() {
		t.Fatal("expected MergeNever to evaluate false")
	}

	var zero MergePolicy
	if !zero.evaluate() {
		t.Fatal("expected the zero-value MergePolicy to behave like MergeAlways")
	}
}

func TestMergePolicy_Custom(t *testing.T) {
	allow := true
	p := MergeCustom(func() bool { return allow })

	if !p.evaluate() {
		t.Fatal("expected a predicate returning true to admit merging")
	}
	allow = false
	if p.evaluate() {
		t.Fatal("expected a predicate returning false to reject merging")
	}
}

func TestMergePolicy_CustomNilPredicateRejects(t *testing.T) {
	p := MergeCustom(nil)
	if p.evaluate() {
		t.Fatal("expected a nil custom predicate to reject merging rather than panic")
	}
}

// groupMergeDescriptor overrides the default fingerprint-equality merge
// rule: any two invocations sharing group are candidates for coalescing,
// regardless of their individual params.
type groupMergeDescriptor struct {
	itemDescriptor
	group string
}

func (d *groupMergeDescriptor) ShouldBeMerged(itemParams) bool { return true }

func TestDescriptorAdapter_ShouldBeMergedDelegatesToDescriptorOverride(t *testing.T) {
	d := &groupMergeDescriptor{group: "a"}
	adapter := &descriptorAdapter[itemParams, item]{descriptor: d, params: itemParams{ID: "a"}, id: "fp-self"}
	peer := &descriptorAdapter[itemParams, item]{descriptor: d, params: itemParams{ID: "b"}, id: "fp-other"}

	if !adapter.ShouldBeMerged(peer.id, peer) {
		t.Fatal("expected the descriptor's ShouldBeMerged override to admit the peer despite mismatched fingerprint ids")
	}
}

func TestDescriptorAdapter_ShouldBeMergedFallsBackToIDEquality(t *testing.T) {
	d := &itemDescriptor{} // implements no MatchCandidate override
	a := &descriptorAdapter[itemParams, item]{descriptor: d, params: itemParams{ID: "a"}, id: "fp1"}
	same := &descriptorAdapter[itemParams, item]{descriptor: d, params: itemParams{ID: "a"}, id: "fp1"}
	other := &descriptorAdapter[itemParams, item]{descriptor: d, params: itemParams{ID: "a"}, id: "fp2"}

	if !a.ShouldBeMerged(same.id, same) {
		t.Fatal("expected matching fingerprint ids to match by default")
	}
	if a.ShouldBeMerged(other.id, other) {
		t.Fatal("expected differing fingerprint ids to not match by default")
	}
}
