package usecase_test

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/JoeShih716/go-nox-ledger/internal/app/core/domain"
)

func TestDirectorySearch(t *testing.T) {
	env := newTestEnv(t)
	_, searcher := env.signup(t, "maria", "Maria")
	alice, _ := env.signup(t, "alice", "Alice")
	env.signup(t, "alice.s", "Alice Souza")
	env.signup(t, "malice", "Malice")
	ctx := context.Background()

	usernames := func(accs []*domain.Account) []string {
		out := make([]string, 0, len(accs))
		for _, a := range accs {
			out = append(out, a.Username)
		}
		return out
	}

	tests := []struct {
		name string
		term string
		want []string
	}{
		{"exact username wins", "@Alice", []string{"alice"}},
		{"prefix before substring", "alic", []string{"alice", "alice.s", "malice"}},
		{"account number with prefix and dashes", string(alice.Number), []string{"alice"}},
		{"self excluded", "maria", []string{}},
		{"too short", "a", []string{}},
		{"no match", "zzz", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := env.directory.Search(ctx, searcher, tt.term)
			if err != nil {
				t.Fatal(err)
			}
			names := usernames(got)
			if len(names) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, names)
			}
			for i := range names {
				if names[i] != tt.want[i] {
					t.Fatalf("expected %v, got %v", tt.want, names)
				}
			}
		})
	}

	if got := testutil.ToFloat64(env.metrics.Searches.WithLabelValues("empty")); got != 2 {
		t.Fatalf("expected 2 empty searches (too short is not counted), got %v", got)
	}
}

func TestRecentContacts(t *testing.T) {
	env := newTestEnv(t)
	_, aliceSess := env.signup(t, "alice", "Alice")
	bob, bobSess := env.signup(t, "bob", "Bob")
	carol, _ := env.signup(t, "carol", "Carol")

	env.deposit(t, aliceSess, domain.NewAmount(100, 0))
	env.deposit(t, bobSess, domain.NewAmount(100, 0))
	env.send(t, aliceSess, bob.ID, 100, domain.TransactionKindPix)
	env.send(t, aliceSess, carol.ID, 100, domain.TransactionKindPix)
	env.send(t, aliceSess, bob.ID, 100, domain.TransactionKindTransfer)
	// 收到的交易不算最近聯絡人
	env.send(t, bobSess, aliceSess.AccountID, 100, domain.TransactionKindTransfer)

	got, err := env.directory.RecentContacts(context.Background(), aliceSess)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != bob.ID || got[1].ID != carol.ID {
		t.Fatalf("unexpected recent contacts %+v", got)
	}
}
