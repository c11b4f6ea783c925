package store

import (
	"testing"

	"github.com/queelius/ctk/pkg/conversation"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenWithDSN("file::memory:?cache=shared")
	if err != nil {
		t.Fatalf("opening in-memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleTree(title string) *conversation.ConversationTree {
	tree := conversation.NewConversationTree(title)
	tree.Metadata.Tags = []string{"golang", "testing"}
	root := conversation.NewMessage(conversation.RoleUser, "hello there")
	tree.AddMessage(root)
	reply := conversation.NewMessage(conversation.RoleAssistant, "hi, how can I help")
	reply.ParentID = &root.ID
	tree.AddMessage(reply)
	return tree
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)
	tree := sampleTree("My Conversation")

	if err := s.Save(tree); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := s.Load(tree.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Title != tree.Title {
		t.Errorf("title = %q, want %q", loaded.Title, tree.Title)
	}
	if len(loaded.Messages) != len(tree.Messages) {
		t.Errorf("message count = %d, want %d", len(loaded.Messages), len(tree.Messages))
	}
	if len(loaded.Metadata.Tags) != 2 {
		t.Errorf("expected 2 tags, got %d", len(loaded.Metadata.Tags))
	}
}

func TestSaveDuplicateIDConflict(t *testing.T) {
	s := newTestStore(t)
	tree := sampleTree("First")
	if err := s.Save(tree); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Save(tree); err == nil {
		t.Fatal("expected conflict error on duplicate save")
	}
}

func TestDeleteRemovesConversation(t *testing.T) {
	s := newTestStore(t)
	tree := sampleTree("To delete")
	if err := s.Save(tree); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Delete(tree.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Load(tree.ID); err == nil {
		t.Fatal("expected not-found error after delete")
	}
}

func TestDeleteUnknownIDNotFound(t *testing.T) {
	s := newTestStore(t)
	if err := s.Delete("does-not-exist"); err == nil {
		t.Fatal("expected not-found error")
	}
}

func TestResolveIdentifierBySlugAndPrefix(t *testing.T) {
	s := newTestStore(t)
	tree := sampleTree("Resolve Me")
	if err := s.Save(tree); err != nil {
		t.Fatalf("Save: %v", err)
	}

	resolved, err := s.ResolveIdentifier(tree.ID)
	if err != nil {
		t.Fatalf("resolve by full id: %v", err)
	}
	if resolved != tree.ID {
		t.Errorf("resolved = %q, want %q", resolved, tree.ID)
	}

	resolved, err = s.ResolveIdentifier(tree.ID[:8])
	if err != nil {
		t.Fatalf("resolve by prefix: %v", err)
	}
	if resolved != tree.ID {
		t.Errorf("prefix-resolved = %q, want %q", resolved, tree.ID)
	}
}

func TestListConversationsReturnsAll(t *testing.T) {
	s := newTestStore(t)
	for _, title := range []string{"A", "B", "C"} {
		if err := s.Save(sampleTree(title)); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	page, err := s.ListConversations(ListOptions{Limit: 10})
	if err != nil {
		t.Fatalf("ListConversations: %v", err)
	}
	if len(page.Items) != 3 {
		t.Fatalf("expected 3 conversations, got %d", len(page.Items))
	}
}

func TestListConversationsByTag(t *testing.T) {
	s := newTestStore(t)
	if err := s.Save(sampleTree("Tagged")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	page, err := s.ListConversations(ListOptions{Tags: []string{"golang"}, Limit: 10})
	if err != nil {
		t.Fatalf("ListConversations: %v", err)
	}
	if len(page.Items) != 1 {
		t.Fatalf("expected 1 tagged conversation, got %d", len(page.Items))
	}

	page, err = s.ListConversations(ListOptions{Tags: []string{"nope"}, Limit: 10})
	if err != nil {
		t.Fatalf("ListConversations: %v", err)
	}
	if len(page.Items) != 0 {
		t.Fatalf("expected 0 matches for unused tag, got %d", len(page.Items))
	}
}

func TestSearchFindsMessageText(t *testing.T) {
	s := newTestStore(t)
	tree := sampleTree("Searchable")
	if err := s.Save(tree); err != nil {
		t.Fatalf("Save: %v", err)
	}

	results, err := s.Search(SearchOptions{Query: "hello", Limit: 10})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results.Items) != 1 {
		t.Fatalf("expected 1 search result, got %d", len(results.Items))
	}
	if results.Items[0].ID != tree.ID {
		t.Errorf("unexpected result id %q", results.Items[0].ID)
	}
}

func TestDuplicatePreservesMessagesUnderNewID(t *testing.T) {
	s := newTestStore(t)
	tree := sampleTree("Original")
	if err := s.Save(tree); err != nil {
		t.Fatalf("Save: %v", err)
	}

	clone, err := s.Duplicate(tree.ID)
	if err != nil {
		t.Fatalf("Duplicate: %v", err)
	}
	if clone.ID == tree.ID {
		t.Fatal("expected clone to have a different id")
	}
	if len(clone.Messages) != len(tree.Messages) {
		t.Errorf("clone message count = %d, want %d", len(clone.Messages), len(tree.Messages))
	}
}

func TestOrganizeFlags(t *testing.T) {
	s := newTestStore(t)
	tree := sampleTree("Flags")
	if err := s.Save(tree); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.SetStarred(tree.ID, true); err != nil {
		t.Fatalf("SetStarred: %v", err)
	}

	page, err := s.ListConversations(ListOptions{Limit: 10})
	if err != nil {
		t.Fatalf("ListConversations: %v", err)
	}
	if !page.Items[0].Starred {
		t.Error("expected conversation to be starred")
	}
}

func TestListConversationsPinnedAndStarredFirst(t *testing.T) {
	s := newTestStore(t)
	var ids []string
	for _, title := range []string{"A", "B", "C"} {
		tree := sampleTree(title)
		if err := s.Save(tree); err != nil {
			t.Fatalf("Save: %v", err)
		}
		ids = append(ids, tree.ID)
	}
	if err := s.SetStarred(ids[1], true); err != nil {
		t.Fatalf("SetStarred: %v", err)
	}
	if err := s.SetPinned(ids[2], true); err != nil {
		t.Fatalf("SetPinned: %v", err)
	}

	page, err := s.ListConversations(ListOptions{Limit: 10})
	if err != nil {
		t.Fatalf("ListConversations: %v", err)
	}
	if len(page.Items) != 3 {
		t.Fatalf("expected 3 conversations, got %d", len(page.Items))
	}
	if page.Items[0].ID != ids[2] {
		t.Errorf("expected pinned conversation first, got %s", page.Items[0].ID)
	}
	if page.Items[1].ID != ids[1] {
		t.Errorf("expected starred conversation second, got %s", page.Items[1].ID)
	}
}

func TestListConversationsExcludesArchivedByDefault(t *testing.T) {
	s := newTestStore(t)
	tree := sampleTree("Archive me")
	if err := s.Save(tree); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.SetArchived(tree.ID, true); err != nil {
		t.Fatalf("SetArchived: %v", err)
	}

	page, err := s.ListConversations(ListOptions{Limit: 10})
	if err != nil {
		t.Fatalf("ListConversations: %v", err)
	}
	if len(page.Items) != 0 {
		t.Fatalf("expected archived conversation excluded by default, got %d", len(page.Items))
	}

	archived := true
	page, err = s.ListConversations(ListOptions{Limit: 10, Archived: &archived})
	if err != nil {
		t.Fatalf("ListConversations with Archived=true: %v", err)
	}
	if len(page.Items) != 1 {
		t.Fatalf("expected 1 archived conversation when requested, got %d", len(page.Items))
	}
}

func TestListConversationsFilterBySourceModelTag(t *testing.T) {
	s := newTestStore(t)
	tree := sampleTree("Filterable")
	tree.Metadata.Source = "openai"
	tree.Metadata.Model = "gpt-4"
	if err := s.Save(tree); err != nil {
		t.Fatalf("Save: %v", err)
	}

	page, err := s.ListConversations(ListOptions{Source: "openai", Limit: 10})
	if err != nil || len(page.Items) != 1 {
		t.Fatalf("filter by source: items=%d err=%v", len(page.Items), err)
	}
	page, err = s.ListConversations(ListOptions{Model: "claude-3", Limit: 10})
	if err != nil || len(page.Items) != 0 {
		t.Fatalf("filter by non-matching model: items=%d err=%v", len(page.Items), err)
	}
	page, err = s.ListConversations(ListOptions{Tag: "golang", Limit: 10})
	if err != nil || len(page.Items) != 1 {
		t.Fatalf("filter by tag: items=%d err=%v", len(page.Items), err)
	}
}

func TestSearchTitleOnlyAndContentOnly(t *testing.T) {
	s := newTestStore(t)
	conv1 := conversation.NewConversationTree("Python Programming Tutorial")
	conv1.AddMessage(conversation.NewMessage(conversation.RoleUser, "tell me about decorators"))
	if err := s.Save(conv1); err != nil {
		t.Fatalf("Save conv1: %v", err)
	}
	conv2 := conversation.NewConversationTree("JavaScript Basics")
	conv2.AddMessage(conversation.NewMessage(conversation.RoleUser, "promises and async"))
	if err := s.Save(conv2); err != nil {
		t.Fatalf("Save conv2: %v", err)
	}

	titleResults, err := s.Search(SearchOptions{Query: "Python", TitleOnly: true, Limit: 10})
	if err != nil {
		t.Fatalf("Search title_only: %v", err)
	}
	if len(titleResults.Items) != 1 || titleResults.Items[0].ID != conv1.ID {
		t.Fatalf("expected title-only match on conv1, got %+v", titleResults.Items)
	}

	contentResults, err := s.Search(SearchOptions{Query: "decorators", ContentOnly: true, Limit: 10})
	if err != nil {
		t.Fatalf("Search content_only: %v", err)
	}
	if len(contentResults.Items) != 1 || contentResults.Items[0].ID != conv1.ID {
		t.Fatalf("expected content-only match on conv1, got %+v", contentResults.Items)
	}
}

func TestSearchMutuallyExclusiveFlagsRejected(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Search(SearchOptions{Query: "x", TitleOnly: true, ContentOnly: true, Limit: 10})
	if err == nil {
		t.Fatal("expected error for mutually exclusive title_only/content_only")
	}
}

func TestSearchByMessageCountAndBranches(t *testing.T) {
	s := newTestStore(t)
	short := conversation.NewConversationTree("Short")
	short.AddMessage(conversation.NewMessage(conversation.RoleUser, "hi"))
	if err := s.Save(short); err != nil {
		t.Fatalf("Save short: %v", err)
	}

	long := conversation.NewConversationTree("Long")
	root := conversation.NewMessage(conversation.RoleUser, "hi")
	long.AddMessage(root)
	childA := conversation.NewMessage(conversation.RoleAssistant, "a")
	childA.ParentID = &root.ID
	long.AddMessage(childA)
	childB := conversation.NewMessage(conversation.RoleAssistant, "b")
	childB.ParentID = &root.ID
	long.AddMessage(childB)
	if err := s.Save(long); err != nil {
		t.Fatalf("Save long: %v", err)
	}

	min := 3
	results, err := s.Search(SearchOptions{MinMessages: &min, Limit: 10})
	if err != nil {
		t.Fatalf("Search min_messages: %v", err)
	}
	if len(results.Items) != 1 || results.Items[0].ID != long.ID {
		t.Fatalf("expected long conversation only, got %+v", results.Items)
	}

	hasBranches := true
	branching, err := s.Search(SearchOptions{HasBranches: &hasBranches, Limit: 10})
	if err != nil {
		t.Fatalf("Search has_branches: %v", err)
	}
	if len(branching.Items) != 1 || branching.Items[0].ID != long.ID {
		t.Fatalf("expected branching conversation only, got %+v", branching.Items)
	}
}

func TestPaginatedHasMore(t *testing.T) {
	s := newTestStore(t)
	for i := 0; i < 3; i++ {
		if err := s.Save(sampleTree("conv")); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	page, err := s.ListConversations(ListOptions{Limit: 2})
	if err != nil {
		t.Fatalf("ListConversations: %v", err)
	}
	if !page.HasMore {
		t.Error("expected HasMore true with 3 conversations and limit 2")
	}
	if page.NextCursor == "" {
		t.Error("expected a next cursor alongside HasMore")
	}

	page, err = s.ListConversations(ListOptions{Limit: 10})
	if err != nil {
		t.Fatalf("ListConversations: %v", err)
	}
	if page.HasMore {
		t.Error("expected HasMore false when the page covers every row")
	}
}

func TestTagOperations(t *testing.T) {
	s := newTestStore(t)
	tree := sampleTree("Tag target")
	if err := s.Save(tree); err != nil {
		t.Fatalf("Save: %v", err)
	}

	ok, err := s.AddTags(tree.ID, []string{"new-tag", "golang"})
	if err != nil {
		t.Fatalf("AddTags: %v", err)
	}
	if !ok {
		t.Fatal("expected AddTags to report success")
	}
	loaded, err := s.Load(tree.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded.Metadata.Tags) != 3 {
		t.Errorf("expected 3 tags after adding (1 new + 2 existing), got %d", len(loaded.Metadata.Tags))
	}

	ok, err = s.AddTags("nonexistent", []string{"x"})
	if err != nil {
		t.Fatalf("AddTags nonexistent: %v", err)
	}
	if ok {
		t.Error("expected AddTags to report failure for a nonexistent conversation")
	}

	ok, err = s.RemoveTag(tree.ID, "testing")
	if err != nil {
		t.Fatalf("RemoveTag: %v", err)
	}
	if !ok {
		t.Fatal("expected RemoveTag to report success")
	}
	ok, err = s.RemoveTag(tree.ID, "nonexistent-tag")
	if err != nil {
		t.Fatalf("RemoveTag nonexistent: %v", err)
	}
	if ok {
		t.Error("expected RemoveTag to report failure for an absent tag")
	}
}

func TestGetAllTagsWithCounts(t *testing.T) {
	s := newTestStore(t)
	conv1 := conversation.NewConversationTree("c1")
	conv1.Metadata.Tags = []string{"python", "ai"}
	if err := s.Save(conv1); err != nil {
		t.Fatalf("Save conv1: %v", err)
	}
	conv2 := conversation.NewConversationTree("c2")
	conv2.Metadata.Tags = []string{"python"}
	if err := s.Save(conv2); err != nil {
		t.Fatalf("Save conv2: %v", err)
	}

	tags, err := s.GetAllTags(true)
	if err != nil {
		t.Fatalf("GetAllTags: %v", err)
	}
	var python *TagCount
	for i := range tags {
		if tags[i].Name == "python" {
			python = &tags[i]
		}
	}
	if python == nil {
		t.Fatal("expected python tag in result")
	}
	if python.UsageCount != 2 {
		t.Errorf("python usage count = %d, want 2", python.UsageCount)
	}
}

func TestGetModelsAndSources(t *testing.T) {
	s := newTestStore(t)
	for _, m := range []string{"gpt-4", "claude-3", "gpt-4"} {
		tree := conversation.NewConversationTree("c")
		tree.Metadata.Model = m
		tree.Metadata.Source = "openai"
		if err := s.Save(tree); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	models, err := s.GetModels()
	if err != nil {
		t.Fatalf("GetModels: %v", err)
	}
	if len(models) != 2 {
		t.Fatalf("expected 2 distinct models, got %d", len(models))
	}
	if models[0].Value != "gpt-4" || models[0].Count != 2 {
		t.Errorf("expected gpt-4 with count 2 first, got %+v", models[0])
	}

	sources, err := s.GetSources()
	if err != nil {
		t.Fatalf("GetSources: %v", err)
	}
	if len(sources) != 1 || sources[0].Count != 3 {
		t.Fatalf("expected 1 source with count 3, got %+v", sources)
	}
}

func TestGetConversationTimeline(t *testing.T) {
	s := newTestStore(t)
	for i := 0; i < 3; i++ {
		if err := s.Save(sampleTree("c")); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	timeline, err := s.GetConversationTimeline(TimelineDay, 10)
	if err != nil {
		t.Fatalf("GetConversationTimeline: %v", err)
	}
	if len(timeline) == 0 {
		t.Fatal("expected at least one timeline bucket")
	}
	if timeline[0].Count != 3 {
		t.Errorf("expected all 3 conversations in today's bucket, got %d", timeline[0].Count)
	}
}

func TestUpdateOrganization(t *testing.T) {
	s := newTestStore(t)
	tree := sampleTree("Org")
	if err := s.Save(tree); err != nil {
		t.Fatalf("Save: %v", err)
	}

	project := "project-x"
	source := "anthropic"
	if err := s.UpdateOrganization(tree.ID, &project, &source, nil); err != nil {
		t.Fatalf("UpdateOrganization: %v", err)
	}
	loaded, err := s.Load(tree.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Metadata.Project != project || loaded.Metadata.Source != source {
		t.Errorf("metadata = %+v, want project=%s source=%s", loaded.Metadata, project, source)
	}

	if err := s.UpdateOrganization("nonexistent", &project, nil, nil); err == nil {
		t.Fatal("expected not-found error for nonexistent conversation")
	}
}

func TestStatisticsCounts(t *testing.T) {
	s := newTestStore(t)
	if err := s.Save(sampleTree("Stat")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	stats, err := s.Statistics()
	if err != nil {
		t.Fatalf("Statistics: %v", err)
	}
	if stats.TotalConversations != 1 {
		t.Errorf("TotalConversations = %d, want 1", stats.TotalConversations)
	}
	if stats.TotalMessages != 2 {
		t.Errorf("TotalMessages = %d, want 2", stats.TotalMessages)
	}
}
