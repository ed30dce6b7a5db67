package events

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/airbusgeo/stac-ingester/common"
	"github.com/airbusgeo/stac-ingester/service"
)

func mustParse(t *testing.T, raw string) Event {
	t.Helper()
	ev, err := Parse([]byte(raw))
	if err != nil {
		t.Fatalf("Parse(%s): %v", raw, err)
	}
	return ev
}

func TestParseVariants(t *testing.T) {
	ev := mustParse(t, `{
		"collection": "OMDOAO3e",
		"remote_fileurl": "s3://climatedashboard-data/OMDOAO3e/OMI-Aura_L3-OMDOAO3e_2022m0120_v003-2022m0122t021759.he5.tif",
		"granule_id": "G2205784904-GES_DISC"
	}`)
	cmr, ok := ev.(*CmrEvent)
	if !ok {
		t.Fatalf("expected *CmrEvent got %T", ev)
	}
	if cmr.GranuleID != "G2205784904-GES_DISC" || cmr.Collection != "OMDOAO3e" {
		t.Errorf("unexpected %+v", cmr)
	}

	ev = mustParse(t, `{
		"collection": "BMHD_Ida",
		"remote_fileurl": "s3://climatedashboard-data/BMHD_Ida/BMHD_Ida2021_NO_LA_August9.tif",
		"datetime_regex": {"regex": "^(.*?BMHD_Ida)([0-9][0-9][0-9][0-9])(.*?)(_)([A-Za-z]+[0-9])(.tif)$", "target_group": [2, 5]},
		"datetime_range": "month",
		"properties": {"foo": "bar"}
	}`)
	re, ok := ev.(*RegexEvent)
	if !ok {
		t.Fatalf("expected *RegexEvent got %T", ev)
	}
	if re.DatetimeRegex == nil || len(re.DatetimeRegex.TargetGroup) != 2 || re.DatetimeRegex.TargetGroup[1] != 5 {
		t.Errorf("unexpected datetime_regex %+v", re.DatetimeRegex)
	}
	if re.DatetimeRange == nil || *re.DatetimeRange != common.DatetimeRangeMonth {
		t.Errorf("unexpected datetime_range %v", re.DatetimeRange)
	}
	if re.Properties["foo"] != "bar" {
		t.Errorf("unexpected properties %v", re.Properties)
	}

	ev = mustParse(t, `{
		"collection": "OMSO2PCA",
		"remote_fileurl": "s3://climatedashboard-data/OMSO2PCA/OMSO2PCA_LUT_SCD_2005.tif",
		"datetime_regex": {"regex": "^(.*?)(_)([0-9][0-9][0-9][0-9])(.tif)$", "target_group": 3}
	}`)
	if groups := ev.(*RegexEvent).DatetimeRegex.TargetGroup; len(groups) != 1 || groups[0] != 3 {
		t.Errorf("unexpected target_group %v", groups)
	}

	ev = mustParse(t, `{"collection": "c", "remote_fileurl": "s3://b/a.tif", "single_datetime": "2021-03-04T05:06:07Z"}`)
	if dt := ev.(*RegexEvent).SingleDatetime; dt == nil || !dt.Equal(time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC)) {
		t.Errorf("unexpected single_datetime %v", dt)
	}
}

func TestMarshalOmitsUnsetAssetFields(t *testing.T) {
	ev := mustParse(t, `{"collection": "c", "remote_fileurl": "s3://b/a.tif", "single_datetime": "2021-01-01"}`)
	b, err := json.Marshal(ev)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(b), "asset_roles") || strings.Contains(string(b), "asset_media_type") {
		t.Errorf("expected unset asset fields to be omitted: %s", b)
	}

	ev = mustParse(t, `{"collection": "c", "remote_fileurl": "s3://b/a.tif", "single_datetime": "2021-01-01",
		"asset_roles": ["data"], "asset_media_type": {"tif": "image/tiff"}}`)
	if b, err = json.Marshal(ev); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), `"asset_roles":["data"]`) || !strings.Contains(string(b), `"asset_media_type":{"tif":"image/tiff"}`) {
		t.Errorf("expected the asset fields: %s", b)
	}
}

func TestParseAssetsDefinitions(t *testing.T) {
	ev := mustParse(t, `{
		"collection": "BIOSAR1",
		"remote_fileurl": "https://example.com/biosar1/biosar1_109_SLC_HH.tiff",
		"granule_id": "G1200110617-ESA_MAAP",
		"asset_name": "data",
		"asset_roles": {"prj": ["metadata"], "tiff": ["data"]},
		"asset_media_type": {"prj": "application/octet-stream", "tiff": "image/tiff"},
		"assets": {"SLC_HH.tiff": "https://example.com/biosar1/biosar1_109_SLC_HH.tiff"},
		"reverse_coords": true,
		"test_links": null
	}`)
	b := Common(ev)
	if roles := b.AssetRoles.For("prj"); len(roles) != 1 || roles[0] != "metadata" {
		t.Errorf("unexpected roles %v", roles)
	}
	if b.AssetMediaType.For("tiff") != "image/tiff" || b.AssetMediaType.For("zip") != "" {
		t.Errorf("unexpected media types %+v", b.AssetMediaType)
	}
	if !b.ReverseCoords || b.TestLinks {
		t.Errorf("unexpected flags %+v", b)
	}

	ev = mustParse(t, `{
		"collection": "GEDI02_A",
		"remote_fileurl": "s3://bucket/GEDI02_A_2020366232302_O11636_02_T08595_02_003_02_V002.h5",
		"granule_id": "G1201782029-NASA_MAAP",
		"asset_roles": ["data"],
		"asset_media_type": "application/x-hdf5"
	}`)
	b = Common(ev)
	if roles := b.AssetRoles.For("h5"); len(roles) != 1 || roles[0] != "data" {
		t.Errorf("unexpected roles %v", roles)
	}
	if b.AssetMediaType.For("h5") != "application/x-hdf5" {
		t.Errorf("unexpected media type %+v", b.AssetMediaType)
	}
}

func TestParseStrategyErrors(t *testing.T) {
	var conflict service.ErrConflictingStrategy
	_, err := Parse([]byte(`{"collection": "c", "remote_fileurl": "s3://b/a.tif", "granule_id": "G1", "datetime_regex": {"regex": "(.*)", "target_group": 1}}`))
	if !errors.As(err, &conflict) {
		t.Errorf("expected ErrConflictingStrategy got %v", err)
	}
	_, err = Parse([]byte(`{"collection": "c", "remote_fileurl": "s3://b/a.tif", "granule_id": "G1", "filename_regex": ".*"}`))
	if !errors.As(err, &conflict) {
		t.Errorf("expected ErrConflictingStrategy got %v", err)
	}

	var missing service.ErrMissingStrategy
	_, err = Parse([]byte(`{"collection": "c", "remote_fileurl": "s3://b/a.tif"}`))
	if !errors.As(err, &missing) {
		t.Errorf("expected ErrMissingStrategy got %v", err)
	}
	_, err = Parse([]byte(`{"collection": "c", "remote_fileurl": "s3://b/a.tif", "granule_id": ""}`))
	if !errors.As(err, &missing) {
		t.Errorf("expected ErrMissingStrategy with an empty granule_id got %v", err)
	}

	var invalid service.ErrInvalidInput
	for _, raw := range []string{
		`not json`,
		`{"remote_fileurl": "s3://b/a.tif", "single_datetime": "2020-01-01"}`,
		`{"collection": "c", "single_datetime": "2020-01-01"}`,
		`{"collection": "c", "remote_fileurl": "s3://b/a.tif", "filename_regex": "("}`,
		`{"collection": "c", "remote_fileurl": "s3://b/a.tif", "single_datetime": "not a date"}`,
		`{"collection": "c", "remote_fileurl": "s3://b/a.tif", "start_datetime": "2020-01-01"}`,
		`{"collection": "c", "remote_fileurl": "s3://b/a.tif", "datetime_regex": {"regex": "(.*)"}}`,
		`{"collection": "c", "remote_fileurl": "s3://b/a.tif", "single_datetime": "2020-01-01", "id_regex": "(["}`,
		`{"collection": "c", "remote_fileurl": "s3://b/a.tif", "single_datetime": "2020-01-01", "datetime_range": "week"}`,
	} {
		if _, err := Parse([]byte(raw)); !errors.As(err, &invalid) {
			t.Errorf("%s: expected ErrInvalidInput got %v", raw, err)
		}
	}
}

func TestItemIDPrecedence(t *testing.T) {
	url := "s3://bucket/dir/biosar1_109_SLC_HH.tiff"
	ev := &RegexEvent{Base: Base{RemoteFileURL: url, ProductID: "biosar1_109", IDRegex: `(biosar1)_(\d+)_SLC`}}
	if id, err := ItemID(ev); err != nil || id != "biosar1-109" {
		t.Errorf("expected id_regex to win: %s (%v)", id, err)
	}

	ev.IDRegex = ""
	if id, err := ItemID(ev); err != nil || id != "biosar1_109" {
		t.Errorf("expected product_id to win: %s (%v)", id, err)
	}

	ev.ProductID = ""
	if id, err := ItemID(ev); err != nil || id != "biosar1_109_SLC_HH" {
		t.Errorf("expected the file stem: %s (%v)", id, err)
	}

	ids := map[string]bool{}
	for _, u := range []string{"s3://bucket/dir/scene#1.tif", "s3://bucket/dir/scene#2.tif", "s3://bucket/dir/scene?1.tif", "s3://bucket/dir/scene%231.tif"} {
		id, err := ItemID(&RegexEvent{Base: Base{RemoteFileURL: u}})
		if err != nil {
			t.Fatal(err)
		}
		if ids[id] {
			t.Errorf("%s: duplicate id %s", u, id)
		}
		ids[id] = true
	}
	if id, _ := ItemID(&RegexEvent{Base: Base{RemoteFileURL: "s3://bucket/dir/100%25.tif"}}); id != "100%25" {
		t.Errorf("expected the stem verbatim got %s", id)
	}

	cmr := &CmrEvent{Base: Base{RemoteFileURL: url, IDRegex: `biosar1_\d+`}, GranuleID: "G1"}
	if id, err := ItemID(cmr); err != nil || id != "biosar1_109" {
		t.Errorf("expected the whole match without group: %s (%v)", id, err)
	}
}

func TestItemIDExtractionError(t *testing.T) {
	var extraction service.ErrIdentifierExtraction
	ev := &RegexEvent{Base: Base{RemoteFileURL: "s3://bucket/a_1_b_2.tif", IDRegex: `([a-z])_(\d)`}}
	if _, err := ItemID(ev); !errors.As(err, &extraction) || extraction.Matches != 2 {
		t.Errorf("expected ErrIdentifierExtraction with 2 matches got %v", err)
	}
	ev.IDRegex = `(zzz)`
	if _, err := ItemID(ev); !errors.As(err, &extraction) || extraction.Matches != 0 {
		t.Errorf("expected ErrIdentifierExtraction with 0 match got %v", err)
	}
}
