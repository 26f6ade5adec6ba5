package repositories

import (
	"context"
	"testing"
	"time"

	"tabletop/internal/models"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type AuditLogsRepoTestSuite struct {
	suite.Suite
	mock     pgxmock.PgxPoolIface
	repo     AuditLogsRepository
	tenantID uuid.UUID
	context  context.Context
}

func (suite *AuditLogsRepoTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	require.NoError(suite.T(), err)
	suite.mock = mock
	suite.repo = NewAuditLogsRepo(mock)
	suite.tenantID = uuid.New()
	suite.context = context.Background()
}

func (suite *AuditLogsRepoTestSuite) TearDownTest() {
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
	suite.mock.Close()
}

func TestAuditLogsRepoTestSuite(t *testing.T) {
	suite.Run(t, new(AuditLogsRepoTestSuite))
}

func (suite *AuditLogsRepoTestSuite) TestCreateAssignsID() {
	log := &models.AuditLog{TenantID: suite.tenantID, TableName: "orders", RecordID: "o-1", Action: models.ActionOrderPaid,
		NewValues: models.JSONB{"payment_method": "cash"}}
	now := time.Now()

	suite.mock.ExpectQuery(`INSERT INTO audit_logs`).
		WithArgs(pgxmock.AnyArg(), suite.tenantID, "orders", "o-1", models.ActionOrderPaid,
			[]byte(`{"payment_method":"cash"}`), pgxmock.AnyArg(), log.ChangedBy).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(now))

	require.NoError(suite.T(), suite.repo.Create(suite.context, log))
	assert.NotEqual(suite.T(), uuid.Nil, log.ID)
	assert.Equal(suite.T(), now, log.CreatedAt)
}

func (suite *AuditLogsRepoTestSuite) TestListFiltersAndDecodes() {
	table := "products"
	now := time.Now()
	rows := pgxmock.NewRows([]string{"id", "tenant_id", "table_name", "record_id", "action", "new_values", "old_values", "changed_by", "created_at"}).
		AddRow(uuid.New(), suite.tenantID, "products", "p-1", models.ActionUpdate,
			[]byte(`{"price":55}`), []byte(`{"price":50}`), (*uuid.UUID)(nil), now)
	suite.mock.ExpectQuery(`FROM audit_logs WHERE tenant_id = \$1 AND table_name = \$2 ORDER BY created_at DESC LIMIT 50 OFFSET 0`).
		WithArgs(suite.tenantID, "products").
		WillReturnRows(rows)

	logs, err := suite.repo.List(suite.context, suite.tenantID, &models.AuditLogFilters{TableName: &table})
	require.NoError(suite.T(), err)
	require.Len(suite.T(), logs, 1)
	assert.Equal(suite.T(), 55.0, logs[0].NewValues["price"])
	assert.Equal(suite.T(), 50.0, logs[0].OldValues["price"])
}
