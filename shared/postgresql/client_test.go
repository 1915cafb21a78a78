package postgresql

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/trade-insights/shared/logger"
)

func newMockClient(t *testing.T, monitorPings bool) (*Client, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(monitorPings))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewFromDB(sqlx.NewDb(db, "sqlmock"), logger.NewNop().Logger), mock
}

func TestConfig_DSN(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		want   string
	}{
		{
			name: "defaults sslmode to disable",
			config: Config{
				Host: "localhost", Port: 5432, User: "gta", Password: "secret", Database: "gta",
			},
			want: "host=localhost port=5432 user=gta password=secret dbname=gta sslmode=disable",
		},
		{
			name: "connect timeout in seconds",
			config: Config{
				Host: "db", Port: 5433, User: "u", Password: "p", Database: "d",
				SSLMode: "require", ConnectTimeout: 7 * time.Second,
			},
			want: "host=db port=5433 user=u password=p dbname=d sslmode=require connect_timeout=7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.config.DSN())
		})
	}
}

func TestClient_HealthCheck(t *testing.T) {
	client, mock := newMockClient(t, true)

	mock.ExpectPing()
	mock.ExpectQuery(`SELECT 1`).WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	require.NoError(t, client.HealthCheck(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClient_HealthCheckPingFails(t *testing.T) {
	client, mock := newMockClient(t, true)

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	err := client.HealthCheck(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database health check failed")
}
