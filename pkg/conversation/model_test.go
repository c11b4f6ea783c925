package conversation

import (
	"testing"
	"time"
)

func TestRoleFromStringAliases(t *testing.T) {
	cases := map[string]MessageRole{
		"user":          RoleUser,
		"Human":         RoleUser,
		"assistant":     RoleAssistant,
		"bot":           RoleAssistant,
		"MODEL":         RoleAssistant,
		"gpt":           RoleAssistant,
		"claude":        RoleAssistant,
		"chatgpt":       RoleAssistant,
		"tool":          RoleTool,
		"tool_use":      RoleTool,
		"function":      RoleFunction,
		"function_call": RoleFunction,
		"tool_result":   RoleToolResult,
		"whatever":      RoleUser,
	}
	for in, want := range cases {
		if got := RoleFromString(in); got != want {
			t.Errorf("RoleFromString(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAddMessageNoDuplicateRoots(t *testing.T) {
	tree := NewConversationTree("test")
	root := NewMessage(RoleUser, "hi")
	tree.AddMessage(root)
	tree.AddMessage(root) // re-adding the same message must not duplicate the root entry

	if len(tree.RootMessageIDs) != 1 {
		t.Fatalf("expected 1 root, got %d", len(tree.RootMessageIDs))
	}
}

func TestGetChildrenOrdersMissingTimestampsLast(t *testing.T) {
	tree := NewConversationTree("test")
	root := NewMessage(RoleUser, "root")
	tree.AddMessage(root)

	t1 := time.Now().UTC()
	withTime := NewMessage(RoleAssistant, "has time")
	withTime.ParentID = &root.ID
	withTime.Timestamp = &t1
	tree.AddMessage(withTime)

	noTime := NewMessage(RoleAssistant, "no time")
	noTime.ParentID = &root.ID
	tree.AddMessage(noTime)

	children := tree.GetChildren(root.ID)
	if len(children) != 2 {
		t.Fatalf("expected 2 children, got %d", len(children))
	}
	if children[0].ID != withTime.ID {
		t.Errorf("expected timestamped message first, got %s", children[0].ID)
	}
	if children[1].ID != noTime.ID {
		t.Errorf("expected missing-timestamp message last, got %s", children[1].ID)
	}
}

func TestGetAllPathsLinearChain(t *testing.T) {
	tree := NewConversationTree("chain")
	prev := NewMessage(RoleUser, "m0")
	tree.AddMessage(prev)
	for i := 0; i < 5; i++ {
		m := NewMessage(RoleAssistant, "m")
		m.ParentID = &prev.ID
		tree.AddMessage(m)
		prev = m
	}

	paths, err := tree.GetAllPaths()
	if err != nil {
		t.Fatalf("GetAllPaths: %v", err)
	}
	if len(paths) != 1 {
		t.Fatalf("expected exactly 1 path in a linear chain, got %d", len(paths))
	}
	if len(paths[0]) != 6 {
		t.Errorf("expected path length 6, got %d", len(paths[0]))
	}
}

func TestGetAllPathsBranching(t *testing.T) {
	tree := NewConversationTree("branch")
	root := NewMessage(RoleUser, "root")
	tree.AddMessage(root)

	childA := NewMessage(RoleAssistant, "a")
	childA.ParentID = &root.ID
	tree.AddMessage(childA)

	childB := NewMessage(RoleAssistant, "b")
	childB.ParentID = &root.ID
	tree.AddMessage(childB)

	paths, err := tree.GetAllPaths()
	if err != nil {
		t.Fatalf("GetAllPaths: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("expected 2 paths from a single branch point, got %d", len(paths))
	}
	if tree.CountBranches() != 1 {
		t.Errorf("expected 1 branch point, got %d", tree.CountBranches())
	}
}

func TestGetLinearHistoryWalksUpAndReverses(t *testing.T) {
	tree := NewConversationTree("chain")
	root := NewMessage(RoleUser, "root")
	tree.AddMessage(root)
	mid := NewMessage(RoleAssistant, "mid")
	mid.ParentID = &root.ID
	tree.AddMessage(mid)
	leaf := NewMessage(RoleUser, "leaf")
	leaf.ParentID = &mid.ID
	tree.AddMessage(leaf)

	history, err := tree.GetLinearHistory(leaf.ID)
	if err != nil {
		t.Fatalf("GetLinearHistory: %v", err)
	}
	want := []string{root.ID, mid.ID, leaf.ID}
	if len(history) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(history))
	}
	for i := range want {
		if history[i] != want[i] {
			t.Errorf("history[%d] = %s, want %s", i, history[i], want[i])
		}
	}
}

func TestGetLinearHistoryMissingIDIsEmpty(t *testing.T) {
	tree := NewConversationTree("chain")
	tree.AddMessage(NewMessage(RoleUser, "root"))

	history, err := tree.GetLinearHistory("does-not-exist")
	if err != nil {
		t.Fatalf("GetLinearHistory: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("expected empty history for a missing id, got %v", history)
	}
}

func TestPathsCacheInvalidatedOnMutation(t *testing.T) {
	tree := NewConversationTree("cache")
	root := NewMessage(RoleUser, "root")
	tree.AddMessage(root)

	first, err := tree.GetAllPaths()
	if err != nil {
		t.Fatalf("GetAllPaths: %v", err)
	}
	if len(first[0]) != 1 {
		t.Fatalf("expected single-message path, got len %d", len(first[0]))
	}

	child := NewMessage(RoleAssistant, "child")
	child.ParentID = &root.ID
	tree.AddMessage(child)

	second, err := tree.GetAllPaths()
	if err != nil {
		t.Fatalf("GetAllPaths: %v", err)
	}
	if len(second[0]) != 2 {
		t.Errorf("expected cache invalidation to extend the path to length 2, got %d", len(second[0]))
	}
}
