package common

// Item properties
const (
	PropDatetime      = "datetime"
	PropStartDatetime = "start_datetime"
	PropEndDatetime   = "end_datetime"

	PropProjEPSG      = "proj:epsg"
	PropProjWKT2      = "proj:wkt2"
	PropProjShape     = "proj:shape"
	PropProjTransform = "proj:transform"
	PropProjBBox      = "proj:bbox"
	PropRasterBands   = "raster:bands"
)

// Media types of the assets
const (
	MediaTypeCOG  = "image/tiff; application=geotiff; profile=cloud-optimized"
	MediaTypeHDF5 = "application/x-hdf5"
	MediaTypeJSON = "application/json"
)

// Roles of the assets
const (
	RoleData     = "data"
	RoleMetadata = "metadata"
)
