// Package gdalinfo derives the metadata of the rasters with the gdalinfo command line
package gdalinfo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"

	"go.uber.org/zap/zapcore"

	"github.com/airbusgeo/stac-ingester/service"
	"github.com/airbusgeo/stac-ingester/service/log"
	"github.com/airbusgeo/stac-ingester/stac"
)

// Deriver implements stac.Deriver
type Deriver struct {
	// Binary is the path of gdalinfo (default: gdalinfo)
	Binary string
}

type cornerCoordinates struct {
	UpperLeft  []float64 `json:"upperLeft"`
	LowerLeft  []float64 `json:"lowerLeft"`
	UpperRight []float64 `json:"upperRight"`
	LowerRight []float64 `json:"lowerRight"`
}

type info struct {
	Size              []int              `json:"size"`
	GeoTransform      []float64          `json:"geoTransform"`
	CornerCoordinates *cornerCoordinates `json:"cornerCoordinates"`
	WGS84Extent       json.RawMessage    `json:"wgs84Extent"`
	Stac              struct {
		EPSG        *int             `json:"proj:epsg"`
		WKT2        string           `json:"proj:wkt2"`
		Shape       []int            `json:"proj:shape"`
		Transform   []float64        `json:"proj:transform"`
		RasterBands []map[string]any `json:"raster:bands"`
	} `json:"stac"`
	Bands []struct {
		Type        string `json:"type"`
		NoDataValue any    `json:"noDataValue"`
	} `json:"bands"`
}

// Derive implements stac.Deriver
func (d *Deriver) Derive(ctx context.Context, url string, options map[string]string) (*stac.RasterInfo, error) {
	binary := d.Binary
	if binary == "" {
		binary = "gdalinfo"
	}
	cmd := exec.Command(binary, "-json", VSIPath(url))
	cmd.Env = append(os.Environ(), env(options)...)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := log.Exec(ctx, cmd, log.StderrLevel(zapcore.DebugLevel), log.WithFilter(gdalFilter), log.KeepErrors(3)); err != nil {
		return nil, fmt.Errorf("gdalinfo %s: %w", url, err)
	}
	return Parse(stdout.Bytes())
}

// gdalFilter raises the level of the "ERROR n: ..." lines of gdal
func gdalFilter(line string, level zapcore.Level) (zapcore.Level, bool) {
	switch {
	case strings.HasPrefix(line, "ERROR "):
		return zapcore.ErrorLevel, false
	case strings.HasPrefix(line, "Warning "):
		return zapcore.WarnLevel, false
	}
	return level, false
}

// Parse parses the output of gdalinfo -json
func Parse(data []byte) (*stac.RasterInfo, error) {
	var i info
	if err := json.Unmarshal(data, &i); err != nil {
		return nil, fmt.Errorf("gdalinfo.Parse: %w", err)
	}
	if len(i.WGS84Extent) == 0 {
		return nil, fmt.Errorf("gdalinfo.Parse: the raster is not georeferenced")
	}
	footprint, err := service.DecodeFootprint(i.WGS84Extent)
	if err != nil {
		return nil, fmt.Errorf("gdalinfo.Parse.wgs84Extent: %w", err)
	}

	r := stac.RasterInfo{
		Footprint: footprint,
		WKT2:      i.Stac.WKT2,
		Shape:     i.Stac.Shape,
		Transform: i.Stac.Transform,
		Bands:     i.Stac.RasterBands,
	}
	if i.Stac.EPSG != nil {
		r.EPSG = *i.Stac.EPSG
	}
	if r.Shape == nil && len(i.Size) == 2 {
		r.Shape = []int{i.Size[1], i.Size[0]}
	}
	if r.Transform == nil && len(i.GeoTransform) == 6 {
		gt := i.GeoTransform
		r.Transform = []float64{gt[1], gt[2], gt[0], gt[4], gt[5], gt[3]}
	}
	if c := i.CornerCoordinates; c != nil && len(c.LowerLeft) == 2 && len(c.UpperRight) == 2 {
		r.ProjBBox = []float64{c.LowerLeft[0], c.LowerLeft[1], c.UpperRight[0], c.UpperRight[1]}
	}
	if r.Bands == nil {
		for _, b := range i.Bands {
			band := map[string]any{"data_type": strings.ToLower(b.Type)}
			if b.NoDataValue != nil {
				band["nodata"] = b.NoDataValue
			}
			r.Bands = append(r.Bands, band)
		}
	}
	return &r, nil
}

// VSIPath returns the GDAL virtual path of the url
func VSIPath(url string) string {
	for prefix, vsi := range map[string]string{"s3://": "/vsis3/", "gs://": "/vsigs/"} {
		if strings.HasPrefix(url, prefix) {
			return vsi + strings.TrimPrefix(url, prefix)
		}
	}
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		return "/vsicurl/" + url
	}
	return url
}

func env(options map[string]string) []string {
	e := make([]string, 0, len(options))
	for k, v := range options {
		e = append(e, k+"="+v)
	}
	sort.Strings(e)
	return e
}
