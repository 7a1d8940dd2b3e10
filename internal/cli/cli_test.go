package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/example/catalog-engine/domain/catalog"
	"github.com/example/catalog-engine/modules/inventory"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRequester struct {
	subjects []string
	requests []map[string]any
	reply    any
	err      error
	closed   bool
}

func (f *fakeRequester) Request(_ context.Context, subject string, req, resp any) error {
	f.subjects = append(f.subjects, subject)

	data, err := json.Marshal(req)
	if err != nil {
		return err
	}
	var body map[string]any
	if err := json.Unmarshal(data, &body); err != nil {
		return err
	}
	f.requests = append(f.requests, body)

	if f.err != nil {
		return f.err
	}
	raw, err := json.Marshal(f.reply)
	if err != nil {
		return err
	}
	return decodeReply(raw, resp)
}

func (f *fakeRequester) Close() {
	f.closed = true
}

func run(t *testing.T, fake *fakeRequester, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommandWithDialer(func(string) (Requester, error) { return fake, nil })
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	paths := [][]string{
		{"catalog", "add-product"}, {"catalog", "update-product"}, {"catalog", "remove-product"}, {"catalog", "list"},
		{"free", "add-item"}, {"free", "remove-item"}, {"free", "list"},
		{"cart", "list"}, {"cart", "clear"},
		{"purchase", "record"}, {"purchase", "list"},
		{"project", "add"}, {"project", "remove"}, {"project", "list"},
		{"click"}, {"audit"}, {"stats"},
	}
	for _, path := range paths {
		sub, _, err := cmd.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], sub.Name())
	}

	format := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "text", format.DefValue)
	require.NotNil(t, cmd.PersistentFlags().Lookup("nats-url"))
	require.NotNil(t, cmd.PersistentFlags().Lookup("timeout"))
}

func TestAddProduct(t *testing.T) {
	fake := &fakeRequester{reply: inventory.ProductResponse{Product: catalog.Product{
		ID: "prod_0001", Name: "Website Pro", Price: "199.90", Stock: 2,
	}}}

	out, err := run(t, fake, "catalog", "add-product",
		"--name", "Website Pro", "--description", "Full website", "--price", "199,90", "--stock", "2")
	require.NoError(t, err)

	require.Equal(t, []string{"services.inventory.add-product"}, fake.subjects)
	assert.Equal(t, "199,90", fake.requests[0]["price"])
	assert.EqualValues(t, 2, fake.requests[0]["stock"])
	assert.Equal(t, "Product prod_0001 created: Website Pro at R$ 199.90 (2 in stock)\n", out)
	assert.True(t, fake.closed)
}

func TestAddProduct_RequiredFlags(t *testing.T) {
	fake := &fakeRequester{}
	_, err := run(t, fake, "catalog", "add-product", "--name", "x")
	require.Error(t, err)
	assert.Empty(t, fake.subjects)
}

func TestUpdateProduct_SendsOnlyChangedFields(t *testing.T) {
	fake := &fakeRequester{reply: inventory.ProductResponse{Product: catalog.Product{ID: "prod_0001"}}}

	_, err := run(t, fake, "catalog", "update-product", "prod_0001", "--stock", "0")
	require.NoError(t, err)

	req := fake.requests[0]
	assert.Equal(t, "prod_0001", req["product_id"])
	assert.EqualValues(t, 0, req["stock"])
	assert.NotContains(t, req, "name")
	assert.NotContains(t, req, "price")

	_, err = run(t, fake, "catalog", "update-product", "prod_0001")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestAddFreeItem_UnlimitedByDefault(t *testing.T) {
	fake := &fakeRequester{reply: inventory.FreeItemResponse{FreeItem: catalog.FreeItem{ID: "free_0001", Name: "Icons"}}}

	_, err := run(t, fake, "free", "add-item", "--name", "Icons", "--description", "d", "--link", "https://example.com/i.zip")
	require.NoError(t, err)
	assert.NotContains(t, fake.requests[0], "stock")

	_, err = run(t, fake, "free", "add-item", "--name", "Icons", "--description", "d", "--link", "l", "--stock", "3")
	require.NoError(t, err)
	assert.EqualValues(t, 3, fake.requests[1]["stock"])
}

func TestListOutput_Golden(t *testing.T) {
	three := 3
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	products := &fakeRequester{reply: inventory.ListProductsResponse{Products: []catalog.Product{
		{ID: "prod_0001", Name: "Website Pro", Price: "199.90", Stock: 2},
		{ID: "prod_0002", Name: "Logo Design", Price: "49.90", Stock: 0},
	}, Total: 2}}
	out, err := run(t, products, "catalog", "list")
	require.NoError(t, err)
	g.Assert(t, "product_list", []byte(out))

	items := &fakeRequester{reply: inventory.ListFreeItemsResponse{FreeItems: []catalog.FreeItem{
		{ID: "free_0001", Name: "Icons", DownloadLink: "https://example.com/i.zip"},
		{ID: "free_0002", Name: "Fonts", DownloadLink: "https://example.com/f.zip", Stock: &three},
	}, Total: 2}}
	out, err = run(t, items, "free", "list")
	require.NoError(t, err)
	g.Assert(t, "free_item_list", []byte(out))
}

func TestJSONFormat(t *testing.T) {
	fake := &fakeRequester{reply: inventory.ClearCartResponse{Removed: 1}}

	out, err := run(t, fake, "--format", "json", "cart", "clear", "u1")
	require.NoError(t, err)
	assert.Equal(t, "services.inventory.clear-cart", fake.subjects[0])

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, map[string]any{"removed": float64(1)}, resp.Data)
}

func TestInvalidFormat(t *testing.T) {
	fake := &fakeRequester{}
	_, err := run(t, fake, "--format", "yaml", "cart", "list")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Empty(t, fake.subjects)
}

func TestServiceErrorReply(t *testing.T) {
	fake := &fakeRequester{reply: map[string]string{"error": "product prod_0404: not found"}}

	_, err := run(t, fake, "catalog", "remove-product", "prod_0404")
	require.Error(t, err)
	assert.ErrorIs(t, err, catalog.ErrNotFound)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestDialFailure(t *testing.T) {
	cmd := NewRootCommandWithDialer(func(string) (Requester, error) { return nil, errors.New("connection refused") })
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"purchase", "list"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestClickAndPurchaseSubjects(t *testing.T) {
	fake := &fakeRequester{reply: map[string]any{"response": map[string]any{"message": "ok", "result": "added"}}}
	out, err := run(t, fake, "click", "--token", `{"k":"product","id":"prod_0001"}`, "--user", "u1")
	require.NoError(t, err)
	assert.Equal(t, "services.interaction.dispatch", fake.subjects[0])
	assert.Equal(t, "u1", fake.requests[0]["user_id"])
	assert.Equal(t, "[added] ok\n", out)

	fake = &fakeRequester{reply: map[string]any{"purchase": map[string]any{"id": "NDB-0001", "buyer_id": "u1", "amount": "49.90"}}}
	out, err = run(t, fake, "purchase", "record", "--buyer", "u1", "--description", "Logo", "--amount", "49,9")
	require.NoError(t, err)
	assert.Equal(t, "services.ledger.record-purchase", fake.subjects[0])
	assert.Equal(t, "catalogctl", fake.requests[0]["recorded_by"])
	assert.Equal(t, "Purchase NDB-0001 recorded: u1 paid R$ 49.90\n", out)
}

func TestDecodeReply(t *testing.T) {
	var resp inventory.ClearCartResponse
	require.NoError(t, decodeReply([]byte(`{"removed":3}`), &resp))
	assert.Equal(t, 3, resp.Removed)

	err := decodeReply([]byte(`{"error":"product is out of stock"}`), &resp)
	assert.ErrorIs(t, err, catalog.ErrOutOfStock)

	assert.Error(t, decodeReply([]byte(`not json`), &resp))
}
