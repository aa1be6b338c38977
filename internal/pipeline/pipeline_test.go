package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usestring/flowschema/internal/cache"
	"github.com/usestring/flowschema/internal/capture"
	"github.com/usestring/flowschema/internal/config"
	"github.com/usestring/flowschema/internal/flow"
	"github.com/usestring/flowschema/internal/query"
	"github.com/usestring/flowschema/pkg/schema"
)

func get(path string) capture.Exchange {
	return capture.Exchange{Method: "GET", Host: "api", Path: path, Status: 200}
}

func run(t *testing.T, opts Options, exchanges ...capture.Exchange) *Result {
	t.Helper()
	res, err := New(opts).Run(context.Background(), exchanges)
	require.NoError(t, err)
	return res
}

func TestRun_QueryTypeWidening(t *testing.T) {
	res := run(t, Options{}, get("/fleet/info?id=5"), get("/fleet/info?id=abc"))

	rec, ok := res.Structure.Record("fleet", "info")
	require.True(t, ok)
	id, ok := rec.QueryParameters.Field("id")
	require.True(t, ok)
	assert.Equal(t, schema.Integer, id.Type())
}

func TestRun_TwoServices(t *testing.T) {
	res := run(t, Options{}, get("/fleet/info"), get("/ship/info"))

	assert.Equal(t, 2, res.Services)
	assert.Equal(t, 2, res.Endpoints)
	require.Len(t, res.Structure.Services, 2)
	for i, name := range []string{"fleet", "ship"} {
		svc := res.Structure.Services[i]
		assert.Equal(t, name, svc.Name)
		require.Len(t, svc.Endpoints, 1)
		assert.Equal(t, "info", svc.Endpoints[0].Name)
	}

	data, err := json.Marshal(res.Structure)
	require.NoError(t, err)
	var decoded map[string]map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Len(t, decoded, 2)
	assert.Len(t, decoded["fleet"], 1)
	assert.Len(t, decoded["ship"], 1)
}

func sampleExchanges() []capture.Exchange {
	var exchanges []capture.Exchange
	for i := 0; i < 50; i++ {
		exchanges = append(exchanges,
			get(fmt.Sprintf("/fleet/info?id=%d&flag", i)),
			capture.Exchange{
				Method:       "POST",
				Path:         "/fleet/update",
				RequestBody:  []byte(fmt.Sprintf(`<u id="%d"><c n="%d.5"/></u>`, i, i)),
				ResponseBody: []byte(`<ok at="2020-01-01T00:00:00"/>`),
			},
			capture.Exchange{
				Method:      "POST",
				Path:        "/ship/move",
				RequestBody: []byte(fmt.Sprintf(`{"x": %d, "to": {"sector": "s%d"}}`, i, i)),
			},
			get(fmt.Sprintf("/ship/scan?depth=%d.25&mode=fast", i)),
		)
	}
	return exchanges
}

func TestRun_Deterministic(t *testing.T) {
	exchanges := sampleExchanges()

	first := run(t, Options{Workers: 8, ParallelReduceThreshold: 4}, exchanges...)
	second := run(t, Options{Workers: 1, ParallelReduceThreshold: 1000}, exchanges...)

	a, err := json.Marshal(first.Structure)
	require.NoError(t, err)
	b, err := json.Marshal(second.Structure)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))

	assert.Equal(t, 200, first.Flows)
	assert.Equal(t, 200, first.Records)
	assert.Equal(t, 4, first.Endpoints)
	assert.Equal(t, 2, first.Services)
}

func TestRun_MergedShapes(t *testing.T) {
	res := run(t, Options{}, sampleExchanges()...)

	data, err := json.Marshal(res.Structure)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"fleet": {
			"info": {
				"method": "GET",
				"query_parameters": {"id": "int", "flag": null},
				"content_structure": {},
				"content_type": "",
				"response_structure": {}
			},
			"update": {
				"method": "POST",
				"query_parameters": {},
				"content_structure": {"u": {"properties": {"id": "int"}, "c": {"properties": {"n": "float"}}}},
				"content_type": "xml",
				"response_structure": {"ok": {"properties": {"at": "datetime"}}}
			}
		},
		"ship": {
			"move": {
				"method": "POST",
				"query_parameters": {},
				"content_structure": {"x": "int", "to": {"sector": "str"}},
				"content_type": "json",
				"response_structure": {}
			},
			"scan": {
				"method": "GET",
				"query_parameters": {"depth": "float", "mode": "str"},
				"content_structure": {},
				"content_type": "",
				"response_structure": {}
			}
		}
	}`, string(data))
}

func TestReduceTree_MatchesLeftFold(t *testing.T) {
	n := flow.NewNormalizer(nil)
	paths := []string{
		"/s/e?a=1", "/s/e?a=x&b", "/s/e?b=true", "/s/e?c=2020-01-01T00:00:00",
		"/s/e?a=1.5", "/s/e?c", "/s/e?b=0", "/s/e?d=", "/s/e?a=-4",
	}
	var records []*flow.Record
	for _, p := range paths {
		rec, err := n.Normalize(&capture.Exchange{Method: "GET", Path: p})
		require.NoError(t, err)
		records = append(records, rec)
	}

	for size := 1; size <= len(records); size++ {
		group := records[:size]
		fold := group[0]
		for _, rec := range group[1:] {
			fold = flow.MergeRecords(fold, rec)
		}
		for _, threshold := range []int{0, 2, 3, 100} {
			tree, err := ReduceTree(context.Background(), group, threshold)
			require.NoError(t, err)
			assert.True(t, schema.Equal(fold.QueryParameters, tree.QueryParameters),
				"size %d threshold %d", size, threshold)
		}
	}

	empty, err := ReduceTree(context.Background(), nil, 2)
	require.NoError(t, err)
	assert.Nil(t, empty)
}

func TestRun_MalformedPathAborts(t *testing.T) {
	_, err := New(Options{}).Run(context.Background(), []capture.Exchange{get("/fleet/info"), get("/broken")})
	assert.ErrorIs(t, err, flow.ErrMalformedPath)
}

func TestRun_SkipMalformedPaths(t *testing.T) {
	res := run(t, Options{SkipMalformedPaths: true}, get("/fleet/info"), get("/broken"), get("/a/b/c"))

	assert.Equal(t, 3, res.Flows)
	assert.Equal(t, 2, res.Skipped)
	assert.Equal(t, 1, res.Records)
	assert.Equal(t, 1, res.Endpoints)
}

func TestRun_Filter(t *testing.T) {
	filter, err := query.NewFilter(`.method == "GET"`)
	require.NoError(t, err)

	res := run(t, Options{Filter: filter},
		get("/fleet/info"),
		capture.Exchange{Method: "POST", Path: "/fleet/update"},
		capture.Exchange{Method: "POST", Path: "/broken"},
	)

	assert.Equal(t, 2, res.Filtered)
	assert.Equal(t, 1, res.Endpoints)
	_, ok := res.Structure.Record("fleet", "update")
	assert.False(t, ok)
}

func TestRun_FilterError(t *testing.T) {
	filter, err := query.NewFilter(`.path[]`)
	require.NoError(t, err)

	_, err = New(Options{Filter: filter}).Run(context.Background(), []capture.Exchange{get("/fleet/info")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "applying flow filter")
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(Options{}).Run(ctx, sampleExchanges())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_Empty(t *testing.T) {
	res := run(t, Options{})

	assert.Equal(t, 0, res.Endpoints)
	data, err := json.Marshal(res.Structure)
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(data))
}

func TestRun_WithTypeCache(t *testing.T) {
	types, err := cache.NewTypeCache(16)
	require.NoError(t, err)

	res := run(t, Options{Types: types}, get("/fleet/info?id=5"), get("/fleet/info?id=5"))
	assert.Equal(t, 1, res.Endpoints)
	assert.Equal(t, 1, types.Len())
}

func TestRunFile_HAR(t *testing.T) {
	har := map[string]any{"log": map[string]any{"entries": []any{
		map[string]any{
			"request":  map[string]any{"method": "GET", "url": "http://api/fleet/info?id=5"},
			"response": map[string]any{"status": 200, "content": map[string]any{"mimeType": "text/xml", "text": `<r a="true"/>`}},
		},
	}}}
	data, err := json.Marshal(har)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "capture.har")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	res, err := New(Options{}).RunFile(context.Background(), path)
	require.NoError(t, err)

	rec, ok := res.Structure.Record("fleet", "info")
	require.True(t, ok)
	out, err := json.Marshal(rec.ResponseStructure)
	require.NoError(t, err)
	assert.JSONEq(t, `{"r": {"properties": {"a": "bool"}}}`, string(out))
}

func TestRunFile_NotFound(t *testing.T) {
	_, err := New(Options{}).RunFile(context.Background(), filepath.Join(t.TempDir(), "missing.flows"))
	assert.ErrorIs(t, err, capture.ErrNotFound)
}

func TestOptionsFromConfig(t *testing.T) {
	opts, err := OptionsFromConfig(&config.Config{
		Workers:               3,
		ClassifyCacheMaxItems: 0,
		FlowFilter:            `.status == 200`,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, opts.Workers)
	assert.Nil(t, opts.Types)
	assert.Equal(t, `.status == 200`, opts.Filter.String())

	_, err = OptionsFromConfig(&config.Config{FlowFilter: `.status ==`})
	assert.Error(t, err)
}
