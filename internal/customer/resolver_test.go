package customer

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	accounts map[string]*Account
	orders   map[string]bool

	accountErr error
	ordersErr  error

	orderLookups []string
}

func (f *fakeStore) FindByEmail(_ context.Context, email string) (*Account, error) {
	if f.accountErr != nil {
		return nil, f.accountErr
	}
	if acc, ok := f.accounts[email]; ok {
		return acc, nil
	}
	return nil, ErrAccountNotFound
}

func (f *fakeStore) HasPaidOrders(_ context.Context, email string) (bool, error) {
	f.orderLookups = append(f.orderLookups, email)
	if f.ordersErr != nil {
		return false, f.ordersErr
	}
	return f.orders[email], nil
}

func TestResolverIsReturning(t *testing.T) {
	tests := []struct {
		name  string
		store *fakeStore
		email string
		want  bool
	}{
		{
			name: "paying account is returning",
			store: &fakeStore{
				accounts: map[string]*Account{"buyer@example.com": {Email: "buyer@example.com", PayingCustomer: true}},
			},
			email: "buyer@example.com",
			want:  true,
		},
		{
			name: "non-paying account is new even with guest orders",
			store: &fakeStore{
				accounts: map[string]*Account{"window@example.com": {Email: "window@example.com"}},
				orders:   map[string]bool{"window@example.com": true},
			},
			email: "window@example.com",
			want:  false,
		},
		{
			name: "guest with order history is returning",
			store: &fakeStore{
				orders: map[string]bool{"guest@example.com": true},
			},
			email: "guest@example.com",
			want:  true,
		},
		{
			name:  "unknown email is new",
			store: &fakeStore{},
			email: "nobody@example.com",
			want:  false,
		},
		{
			name: "email lowercased before lookup",
			store: &fakeStore{
				accounts: map[string]*Account{"buyer@example.com": {Email: "buyer@example.com", PayingCustomer: true}},
			},
			email: "BUYER@EXAMPLE.COM",
			want:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewResolver(tt.store).IsReturning(context.Background(), tt.email)

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolverAccountVerdictSkipsOrderHistory(t *testing.T) {
	store := &fakeStore{
		accounts: map[string]*Account{"window@example.com": {Email: "window@example.com"}},
		orders:   map[string]bool{"window@example.com": true},
	}

	_, err := NewResolver(store).IsReturning(context.Background(), "window@example.com")

	require.NoError(t, err)
	assert.Empty(t, store.orderLookups, "account verdict must not fall through to order history")
}

func TestResolverPropagatesStoreErrors(t *testing.T) {
	t.Run("account lookup", func(t *testing.T) {
		store := &fakeStore{accountErr: errors.New("db down")}

		_, err := NewResolver(store).IsReturning(context.Background(), "x@example.com")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "find account")
	})

	t.Run("order history", func(t *testing.T) {
		store := &fakeStore{ordersErr: errors.New("db down")}

		_, err := NewResolver(store).IsReturning(context.Background(), "x@example.com")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "check order history")
	})
}
