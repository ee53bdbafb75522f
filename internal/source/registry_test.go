// File path: internal/source/registry_test.go
package source

import (
	"context"
	"testing"
)

type stubProvider struct {
	name     string
	refTypes []string
}

func (p *stubProvider) Name() string { return p.name }
func (p *stubProvider) Authenticate(ctx context.Context, credentials map[string]string) (bool, error) {
	return true, nil
}
func (p *stubProvider) IsAuthenticated() bool { return true }
func (p *stubProvider) Search(ctx context.Context, query string, opts SearchOptions) ([]ContextItem, error) {
	return nil, nil
}
func (p *stubProvider) ItemDetails(ctx context.Context, id string) (*ContextItem, error) {
	return nil, nil
}
func (p *stubProvider) SupportedReferenceTypes() []string          { return p.refTypes }
func (p *stubProvider) ExtractReferences(items []ContextItem) []Reference { return nil }
func (p *stubProvider) Disconnect(ctx context.Context) error       { return nil }

func TestRegistryPreservesRegistrationOrder(t *testing.T) {
	reg := NewRegistry()
	for _, name := range []string{"jira", "github", "slack"} {
		if err := reg.Register(&stubProvider{name: name}); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}
	names := reg.Names()
	if len(names) != 3 || names[0] != "jira" || names[1] != "github" || names[2] != "slack" {
		t.Fatalf("unexpected order %v", names)
	}
	if p := reg.Provider("JIRA"); p == nil || p.Name() != "jira" {
		t.Fatal("lookup should be case-insensitive")
	}
	if p := reg.Provider("confluence"); p != nil {
		t.Fatalf("unexpected provider %v", p)
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(&stubProvider{name: "jira"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := reg.Register(&stubProvider{name: "Jira"}); err == nil {
		t.Fatal("expected duplicate registration error")
	}
	if err := reg.Register(nil); err == nil {
		t.Fatal("expected error for nil provider")
	}
	if err := reg.Register(&stubProvider{name: "  "}); err == nil {
		t.Fatal("expected error for blank name")
	}
}

func TestRegistryResolversFilterByReferenceType(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(&stubProvider{name: "jira", refTypes: []string{TypeTicket}}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := reg.Register(&stubProvider{name: "github", refTypes: []string{TypePR, TypeIssue}}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := reg.Register(&stubProvider{name: "tracker", refTypes: []string{TypeTicket}}); err != nil {
		t.Fatalf("register: %v", err)
	}

	resolvers := reg.Resolvers(TypeTicket)
	if len(resolvers) != 2 || resolvers[0].Name() != "jira" || resolvers[1].Name() != "tracker" {
		t.Fatalf("unexpected ticket resolvers %v", resolvers)
	}
	resolvers = reg.Resolvers("PR")
	if len(resolvers) != 1 || resolvers[0].Name() != "github" {
		t.Fatalf("reference type match should be case-insensitive, got %v", resolvers)
	}
	if resolvers := reg.Resolvers("wiki"); len(resolvers) != 0 {
		t.Fatalf("unexpected resolvers %v", resolvers)
	}
}
