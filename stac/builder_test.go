package stac_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/airbusgeo/stac-ingester/common"
	"github.com/airbusgeo/stac-ingester/events"
	"github.com/airbusgeo/stac-ingester/service"
	"github.com/airbusgeo/stac-ingester/stac"
	"github.com/go-spatial/geom"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

type fakeDeriver struct {
	info    *stac.RasterInfo
	err     error
	urls    []string
	options map[string]string
}

func (d *fakeDeriver) Derive(ctx context.Context, url string, options map[string]string) (*stac.RasterInfo, error) {
	d.urls = append(d.urls, url)
	d.options = options
	return d.info, d.err
}

type fakeGranules map[string]*stac.Granule

func (g fakeGranules) Granule(ctx context.Context, id string) (*stac.Granule, error) {
	if granule, ok := g[id]; ok {
		return granule, nil
	}
	return nil, fmt.Errorf("granule %s not found", id)
}

var _ = Describe("Builder", func() {
	var (
		ctx      = context.Background()
		deriver  *fakeDeriver
		checked  []string
		builder  *stac.Builder
		item     *stac.Item
		buildErr error
		event    string
	)

	timeStart := time.Date(2022, 1, 20, 0, 0, 0, 0, time.UTC)
	timeEnd := time.Date(2022, 1, 20, 23, 59, 59, 0, time.UTC)
	granules := fakeGranules{
		"G2205784904-GES_DISC": {
			ID:        "G2205784904-GES_DISC",
			TimeStart: timeStart,
			TimeEnd:   &timeEnd,
			Polygons: [][][][2]float64{
				{{{-11, 129}, {-11, 130}, {-12, 130}, {-12, 129}, {-11, 129}}},
				{{{-12, 130}, {-11, 130}, {-11, 131}, {-12, 131}, {-12, 130}}},
			},
			Links: []stac.GranuleLink{
				{Href: "https://data.gesdisc.earthdata.nasa.gov/OMI-Aura_L3-OMDOAO3e_2022m0120_v003-2022m0122t021759.he5", Title: "OMI.he5"},
				{Href: "https://data.gesdisc.earthdata.nasa.gov/doc.pdf", Title: "documentation"},
			},
			Properties: map[string]any{"producer_granule_id": "OMI-Aura_L3-OMDOAO3e_2022m0120_v003-2022m0122t021759.he5"},
		},
	}

	BeforeEach(func() {
		checked = nil
		deriver = &fakeDeriver{info: &stac.RasterInfo{
			Footprint: geom.Polygon{{{10, 40}, {12, 40}, {12, 42}, {10, 42}, {10, 40}}},
			EPSG:      4326,
			Shape:     []int{200, 200},
			Transform: []float64{0.01, 0, 10, 0, -0.01, 42},
			Bands:     []map[string]any{{"data_type": "float32"}},
		}}
		builder = &stac.Builder{
			Deriver:  deriver,
			Granules: granules,
			LinkChecker: stac.LinkCheckerFunc(func(ctx context.Context, href string) error {
				checked = append(checked, href)
				return nil
			}),
		}
	})

	JustBeforeEach(func() {
		ev, err := events.Parse([]byte(event))
		Expect(err).NotTo(HaveOccurred())
		item, buildErr = builder.Build(ctx, ev)
	})

	Describe("building from a regex event", func() {
		Context("with a single datetime", func() {
			BeforeEach(func() {
				event = `{
					"collection": "OMSO2PCA",
					"remote_fileurl": "s3://climatedashboard-data/OMSO2PCA/OMSO2PCA_LUT_SCD_2005.tif",
					"single_datetime": "2005-01-01T00:00:00Z",
					"properties": {"unit": "DU"},
					"gdal_config_options": {"AWS_REQUEST_PAYER": "requester"}
				}`
			})
			It("should build the item from the raster", func() {
				Expect(buildErr).NotTo(HaveOccurred())
				Expect(item.ID).To(Equal("OMSO2PCA_LUT_SCD_2005"))
				Expect(item.Collection).To(Equal("OMSO2PCA"))
				Expect(item.Properties[common.PropDatetime]).To(Equal("2005-01-01T00:00:00Z"))
				Expect(item.Properties["unit"]).To(Equal("DU"))
				Expect(item.Properties[common.PropProjEPSG]).To(Equal(4326))
				Expect(item.BBox).To(Equal([]float64{10, 40, 12, 42}))
				Expect(item.StacExtensions).To(ConsistOf(stac.ExtensionProjection, stac.ExtensionRaster))
				Expect(deriver.urls).To(Equal([]string{"s3://climatedashboard-data/OMSO2PCA/OMSO2PCA_LUT_SCD_2005.tif"}))
				Expect(deriver.options).To(HaveKeyWithValue("AWS_REQUEST_PAYER", "requester"))
			})
			It("should add the remote file as the default asset", func() {
				Expect(item.Assets).To(HaveLen(1))
				Expect(item.Assets).To(HaveKey(stac.DefaultAssetName))
				asset := item.Assets[stac.DefaultAssetName]
				Expect(asset.Href).To(Equal("s3://climatedashboard-data/OMSO2PCA/OMSO2PCA_LUT_SCD_2005.tif"))
				Expect(asset.Type).To(Equal(common.MediaTypeCOG))
				Expect(asset.Roles).To(Equal([]string{common.RoleData}))
			})
			It("should serialize a geojson feature", func() {
				b, err := json.Marshal(item)
				Expect(err).NotTo(HaveOccurred())
				var feature map[string]any
				Expect(json.Unmarshal(b, &feature)).To(Succeed())
				Expect(feature["type"]).To(Equal("Feature"))
				Expect(feature["stac_version"]).To(Equal(stac.Version))
				Expect(feature["geometry"]).To(HaveKeyWithValue("type", "Polygon"))
			})
		})

		Context("with a date in the filename", func() {
			BeforeEach(func() {
				event = `{
					"collection": "no2-monthly",
					"remote_fileurl": "s3://covid-eo-data/OMNO2d_HRM/OMI_trno2_0.10x0.10_202101_Col3_V4.nc.tif",
					"filename_regex": ".*.tif$",
					"datetime_range": "month"
				}`
			})
			It("should expand the date to the month", func() {
				Expect(buildErr).NotTo(HaveOccurred())
				Expect(item.Properties).To(HaveKeyWithValue(common.PropDatetime, BeNil()))
				Expect(item.Properties[common.PropStartDatetime]).To(Equal("2021-01-01T00:00:00Z"))
				Expect(item.Properties[common.PropEndDatetime]).To(Equal("2021-01-31T23:59:59Z"))
			})
		})

		Context("without any date in the filename", func() {
			BeforeEach(func() {
				event = `{"collection": "c", "remote_fileurl": "s3://bucket/nodate.tif", "filename_regex": ".*"}`
			})
			It("should return a metadata derivation error", func() {
				var derr service.ErrMetadataDerivation
				Expect(errors.As(buildErr, &derr)).To(BeTrue())
				Expect(derr.URL).To(Equal("s3://bucket/nodate.tif"))
				Expect(deriver.urls).To(BeEmpty())
			})
		})

		Context("when the raster cannot be read", func() {
			BeforeEach(func() {
				deriver.err = service.MakeTemporary(fmt.Errorf("gdalinfo: timeout"))
				event = `{"collection": "c", "remote_fileurl": "s3://bucket/a_2020.tif", "filename_regex": ".*"}`
			})
			It("should return a temporary metadata derivation error", func() {
				var derr service.ErrMetadataDerivation
				Expect(errors.As(buildErr, &derr)).To(BeTrue())
				Expect(service.Temporary(buildErr)).To(BeTrue())
				Expect(item).To(BeNil())
			})
		})

		Context("with an id_regex matching twice", func() {
			BeforeEach(func() {
				event = `{"collection": "c", "remote_fileurl": "s3://bucket/a_1_b_2.tif", "id_regex": "[a-z]_\\d", "single_datetime": "2020-01-01"}`
			})
			It("should return an identifier extraction error", func() {
				var ierr service.ErrIdentifierExtraction
				Expect(errors.As(buildErr, &ierr)).To(BeTrue())
				Expect(ierr.Matches).To(Equal(2))
			})
		})
	})

	Describe("building from a cmr event", func() {
		Context("in cmr mode", func() {
			BeforeEach(func() {
				event = `{
					"collection": "OMDOAO3e",
					"remote_fileurl": "s3://climatedashboard-data/OMDOAO3e/OMI-Aura_L3-OMDOAO3e_2022m0120_v003-2022m0122t021759.he5.tif",
					"granule_id": "G2205784904-GES_DISC",
					"mode": "cmr",
					"test_links": true
				}`
			})
			It("should use the granule metadata", func() {
				Expect(buildErr).NotTo(HaveOccurred())
				Expect(item.ID).To(Equal("OMI-Aura_L3-OMDOAO3e_2022m0120_v003-2022m0122t021759.he5"))
				Expect(item.Properties[common.PropDatetime]).To(Equal("2022-01-20T00:00:00Z"))
				Expect(item.Properties[common.PropEndDatetime]).To(Equal("2022-01-20T23:59:59Z"))
				Expect(item.Properties["producer_granule_id"]).NotTo(BeNil())
				Expect(deriver.urls).To(BeEmpty())
			})
			It("should merge the footprint of the granule", func() {
				Expect(item.BBox).To(Equal([]float64{129, -12, 131, -11}))
			})
			It("should add the hdf5 links as assets", func() {
				Expect(item.Assets).To(HaveLen(2))
				Expect(item.Assets["OMI.he5"].Type).To(Equal(common.MediaTypeHDF5))
				Expect(item.Assets[stac.DefaultAssetName].Href).To(HavePrefix("s3://"))
			})
			It("should only check the http links", func() {
				Expect(checked).To(Equal([]string{"https://data.gesdisc.earthdata.nasa.gov/OMI-Aura_L3-OMDOAO3e_2022m0120_v003-2022m0122t021759.he5"}))
			})
		})

		Context("with reversed coordinates", func() {
			BeforeEach(func() {
				event = `{
					"collection": "OMDOAO3e",
					"remote_fileurl": "s3://bucket/granule.tif",
					"granule_id": "G2205784904-GES_DISC",
					"mode": "cmr",
					"reverse_coords": true
				}`
			})
			It("should swap the coordinates", func() {
				Expect(buildErr).NotTo(HaveOccurred())
				Expect(item.BBox).To(Equal([]float64{-12, 129, -11, 131}))
			})
		})

		Context("with assets defined by extension", func() {
			BeforeEach(func() {
				event = `{
					"collection": "AfriSAR_UAVSAR_KZ",
					"remote_fileurl": "s3://nasa-maap-data-store/kz.hdr",
					"granule_id": "G2205784904-GES_DISC",
					"asset_roles": {"bin": ["data"], "hdr": ["metadata"]},
					"asset_media_type": {"bin": "binary/octet-stream", "hdr": "binary/octet-stream"},
					"assets": {"bin": "s3://nasa-maap-data-store/kz.bin", "hdr": "s3://nasa-maap-data-store/kz.hdr"},
					"product_id": "uavsar_kz"
				}`
			})
			It("should use the raster deriver and the roles per extension", func() {
				Expect(buildErr).NotTo(HaveOccurred())
				Expect(item.ID).To(Equal("uavsar_kz"))
				Expect(deriver.urls).To(Equal([]string{"s3://nasa-maap-data-store/kz.hdr"}))
				Expect(item.Assets["hdr"].Roles).To(Equal([]string{common.RoleMetadata}))
				Expect(item.Assets["bin"].Type).To(Equal("binary/octet-stream"))
				Expect(item.Assets).To(HaveKey("OMI.he5"))
			})
		})

		Context("with an unknown granule", func() {
			BeforeEach(func() {
				event = `{"collection": "c", "remote_fileurl": "s3://bucket/a.tif", "granule_id": "G0-UNKNOWN"}`
			})
			It("should return a metadata derivation error", func() {
				var derr service.ErrMetadataDerivation
				Expect(errors.As(buildErr, &derr)).To(BeTrue())
			})
		})
	})

	Describe("testing the links", func() {
		BeforeEach(func() {
			builder.LinkChecker = stac.LinkCheckerFunc(func(ctx context.Context, href string) error {
				return fmt.Errorf("404 Not Found")
			})
			event = `{"collection": "c", "remote_fileurl": "https://example.com/a_2020-01-02.tif", "filename_regex": ".*", "test_links": true}`
		})
		It("should fail when an asset is unreachable", func() {
			var derr service.ErrMetadataDerivation
			Expect(errors.As(buildErr, &derr)).To(BeTrue())
			Expect(derr.URL).To(Equal("https://example.com/a_2020-01-02.tif"))
		})
	})
})
