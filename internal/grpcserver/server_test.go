package grpcserver

import (
	"context"
	"net"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"tvcompare/internal/catalog"
	"tvcompare/internal/cloud"
	"tvcompare/internal/cloud/cloudtest"
	"tvcompare/internal/compare"
	"tvcompare/internal/localstore"
	"tvcompare/pkg/database"
)

func newClient(t *testing.T) CatalogServiceClient {
	t.Helper()
	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "data.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	local := localstore.New(db, nil)
	remote := cloud.New(local, nil, cloudtest.New().Option())
	svc := catalog.NewService(local, remote, nil, nil)

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	RegisterCatalogServiceServer(srv, NewServer(svc))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return NewCatalogServiceClient(conn)
}

func TestListAndGetItems(t *testing.T) {
	c := newClient(t)
	ctx := context.Background()

	list, err := c.ListItems(ctx, &ListItemsRequest{})
	require.NoError(t, err)
	assert.EqualValues(t, 4, list.Total)

	list, err = c.ListItems(ctx, &ListItemsRequest{Q: "sony"})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "sony-a80l", list.Items[0].ID)

	got, err := c.GetItem(ctx, &GetItemRequest{ID: "lg-c3"})
	require.NoError(t, err)
	assert.Equal(t, "LG", got.Item.Brand)

	_, err = c.GetItem(ctx, &GetItemRequest{ID: "ghost"})
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = c.GetItem(ctx, &GetItemRequest{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestCompareOverGRPC(t *testing.T) {
	c := newClient(t)
	ctx := context.Background()

	resp, err := c.Compare(ctx, &CompareRequest{ItemIDs: []string{"lg-c3", "tcl-c845"}})
	require.NoError(t, err)
	require.Len(t, resp.Table.Items, 2)
	rows := map[string]compare.Row{}
	for _, row := range resp.Table.Rows {
		require.Len(t, row.Cells, 2)
		rows[row.Field.ID] = row
	}
	hz := rows["refresh_rate"]
	assert.Equal(t, "tcl-c845", hz.BestID)
	assert.Equal(t, compare.ClassScalar, hz.Cells[0].Cell.Class)
	n, ok := hz.Cells[1].Cell.Value.Float()
	require.True(t, ok)
	assert.Equal(t, 144.0, n)
	assert.Equal(t, compare.ClassTrue, rows["hdr_support"].Cells[0].Cell.Class)

	_, err = c.Compare(ctx, &CompareRequest{ItemIDs: []string{"a", "b", "c", "d", "e"}})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = c.Compare(ctx, &CompareRequest{ItemIDs: []string{"lg-c3", "ghost"}})
	assert.Equal(t, codes.NotFound, status.Code(err))
}
