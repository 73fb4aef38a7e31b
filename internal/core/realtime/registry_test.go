package realtime

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/b2bwholesale/ordering-sync/internal/core/domain"
)

func TestRegistry_RegisterIsUnauthenticated(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry(NewRouter())

	c := reg.Register("c1")

	req.Equal("c1", c.ID)
	req.Equal(domain.RoleUnauthenticated, c.Role)
	req.Empty(c.UserID)
	req.Equal(RoleCounts{Unauthenticated: 1}, reg.CountsByRole())
}

func TestRegistry_RegisterTwiceOverwrites(t *testing.T) {
	req := require.New(t)
	router := NewRouter()
	reg := NewRegistry(router)
	reg.Register("c1")
	_, err := reg.Authenticate("c1", "a1", domain.RoleAdmin)
	req.NoError(err)

	reg.Register("c1")

	c, ok := reg.Get("c1")
	req.True(ok)
	req.Equal(domain.RoleUnauthenticated, c.Role)
	req.Equal(RoleCounts{Unauthenticated: 1}, reg.CountsByRole())
	req.Empty(router.Resolve(domain.ChannelAdmin))
}

func TestRegistry_AuthenticateJoinsChannels(t *testing.T) {
	req := require.New(t)
	router := NewRouter()
	reg := NewRegistry(router)
	reg.Register("c2")

	channels, err := reg.Authenticate("c2", "p1", domain.RolePartner)

	req.NoError(err)
	req.Equal([]domain.Channel{domain.ChannelPartners, "partner:p1"}, channels)
	req.Contains(router.Resolve(domain.ChannelPartners), "c2")
	req.Contains(router.Resolve(domain.PartnerChannel("p1")), "c2")

	c, _ := reg.Get("c2")
	req.Equal("p1", c.UserID)
	req.Equal(domain.RolePartner, c.Role)
	req.False(c.AuthenticatedAt.IsZero())
}

func TestRegistry_AuthenticateInvalidIdentity(t *testing.T) {
	reg := NewRegistry(NewRouter())
	reg.Register("c1")

	cases := []struct {
		name   string
		userID string
		role   domain.Role
	}{
		{"missing user", "", domain.RoleAdmin},
		{"missing role", "u1", ""},
		{"unauthenticated role", "u1", domain.RoleUnauthenticated},
		{"unknown role", "u1", "superuser"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := reg.Authenticate("c1", tc.userID, tc.role)
			require.True(t, errors.Is(err, domain.ErrInvalidIdentity), "got %v", err)
		})
	}

	c, _ := reg.Get("c1")
	require.Equal(t, domain.RoleUnauthenticated, c.Role)
}

func TestRegistry_ReauthenticateSwitchesChannels(t *testing.T) {
	req := require.New(t)
	router := NewRouter()
	reg := NewRegistry(router)
	reg.Register("c1")
	_, _ = reg.Authenticate("c1", "p1", domain.RolePartner)

	_, err := reg.Authenticate("c1", "a1", domain.RoleAdmin)

	req.NoError(err)
	req.Empty(router.Resolve(domain.ChannelPartners))
	req.Empty(router.Resolve(domain.PartnerChannel("p1")))
	req.Equal([]string{"c1"}, router.Resolve(domain.ChannelAdmin))
}

func TestRegistry_AuthenticateUnknownIsNoop(t *testing.T) {
	reg := NewRegistry(NewRouter())

	channels, err := reg.Authenticate("ghost", "u1", domain.RoleAdmin)

	require.NoError(t, err)
	require.Nil(t, channels)
	require.Equal(t, RoleCounts{}, reg.CountsByRole())
}

func TestRegistry_UnregisterIsIdempotent(t *testing.T) {
	req := require.New(t)
	router := NewRouter()
	reg := NewRegistry(router)
	reg.Register("c1")
	_, _ = reg.Authenticate("c1", "p1", domain.RolePartner)

	req.True(reg.Unregister("c1"))
	req.False(reg.Unregister("c1"))
	req.False(reg.Unregister("never-registered"))

	_, ok := reg.Get("c1")
	req.False(ok)
	req.Empty(router.Resolve(domain.ChannelPartners))
	req.Empty(router.Resolve(domain.PartnerChannel("p1")))
}

func TestRegistry_CountsByRole(t *testing.T) {
	reg := NewRegistry(NewRouter())
	for _, id := range []string{"a", "b", "c", "d"} {
		reg.Register(id)
	}
	_, _ = reg.Authenticate("a", "admin-1", domain.RoleAdmin)
	_, _ = reg.Authenticate("b", "p1", domain.RolePartner)
	_, _ = reg.Authenticate("c", "p1", domain.RolePartner)

	require.Equal(t, RoleCounts{Admin: 1, Partner: 2, Unauthenticated: 1}, reg.CountsByRole())
}

func TestRegistry_GetReturnsCopy(t *testing.T) {
	reg := NewRegistry(NewRouter())
	reg.Register("c1")
	_, _ = reg.Authenticate("c1", "p1", domain.RolePartner)

	c, _ := reg.Get("c1")
	c.Channels[0] = "tampered"
	c.Role = domain.RoleAdmin

	again, _ := reg.Get("c1")
	require.Equal(t, domain.ChannelPartners, again.Channels[0])
	require.Equal(t, domain.RolePartner, again.Role)
}
