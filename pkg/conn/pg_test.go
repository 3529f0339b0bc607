package conn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
)

func TestOptionDSN(t *testing.T) {
	testCases := []struct {
		desc string
		opt  Option
		want string
	}{
		{
			desc: "defaults",
			opt:  Option{},
			want: "postgres://localhost:5432?sslmode=disable",
		},
		{
			desc: "full",
			opt:  Option{Host: "db", Port: 6543, User: "exec", Password: "pw", Database: "cache", SSLMode: "require"},
			want: "postgres://exec:pw@db:6543/cache?sslmode=require",
		},
		{
			desc: "extra params",
			opt:  Option{Params: map[string]string{"application_name": "execd", "": "skipped"}},
			want: "postgres://localhost:5432?application_name=execd&sslmode=disable",
		},
		{
			desc: "conn string wins",
			opt:  Option{Host: "db", ConnString: "postgres://x/y"},
			want: "postgres://x/y",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.opt.dsn())
		})
	}
}

func TestNewWithDialector(t *testing.T) {
	c, err := New(Option{Dialector: sqlite.Open(":memory:"), MaxConns: 1})
	require.NoError(t, err)
	require.NotNil(t, c.DB())
	require.NoError(t, c.DB().Exec("SELECT 1").Error)
	require.NoError(t, c.Close())

	var nilClient *Client
	assert.Nil(t, nilClient.DB())
	assert.NoError(t, nilClient.Close())
}
