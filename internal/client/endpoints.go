package client

// Endpoints holds the downstream paths, relative to each service host.
type Endpoints struct {
	MDMSSearch                 string
	BoundaryRelationshipSearch string
	BoundaryHierarchySearch    string
	BoundaryCreate             string
	BoundarySearch             string
	FacilityCreate             string
	FacilitySearch             string
	EmployeeCreate             string
	EmployeeSearch             string
	IndividualSearch           string
	IDGenGenerate              string
	FileStoreURL               string
	FileStoreUpload            string
	ProjectSearch              string
	ProjectCreate              string
	ProjectUpdate              string
	ProjectResourceCreate      string
	ProjectFacilityCreate      string
	ProjectStaffCreate         string
}

// DefaultEndpoints returns the standard service paths.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		MDMSSearch:                 "mdms-v2/v2/_search",
		BoundaryRelationshipSearch: "boundary-service/boundary-relationships/_search",
		BoundaryHierarchySearch:    "boundary-service/boundary-hierarchy-definition/_search",
		BoundaryCreate:             "boundary-service/boundary/_create",
		BoundarySearch:             "boundary-service/boundary/_search",
		FacilityCreate:             "facility/v1/bulk/_create",
		FacilitySearch:             "facility/v1/_search",
		EmployeeCreate:             "health-hrms/employees/_create",
		EmployeeSearch:             "health-hrms/employees/_search",
		IndividualSearch:           "health-individual/v1/_search",
		IDGenGenerate:              "egov-idgen/id/_generate",
		FileStoreURL:               "filestore/v1/files/url",
		FileStoreUpload:            "filestore/v1/files",
		ProjectSearch:              "project/v1/_search",
		ProjectCreate:              "project/v1/_create",
		ProjectUpdate:              "project/v1/_update",
		ProjectResourceCreate:      "project/resource/v1/_create",
		ProjectFacilityCreate:      "project/facility/v1/_create",
		ProjectStaffCreate:         "project/staff/v1/_create",
	}
}
