package resource

// Canonical sheet and column keys. Workbooks carry the localized text; the
// sheet reader maps it back to these keys.
const (
	SheetFacilities   = "HCM_ADMIN_CONSOLE_FACILITIES"
	SheetUsers        = "HCM_ADMIN_CONSOLE_USER_LIST"
	SheetBoundaryData = "HCM_ADMIN_CONSOLE_BOUNDARY_DATA"
	SheetReadme       = "HCM_README_SHEETNAME"

	ColumnBoundaryCode = "HCM_ADMIN_CONSOLE_BOUNDARY_CODE"

	ColumnFacilityCode     = "HCM_ADMIN_CONSOLE_FACILITY_CODE"
	ColumnFacilityName     = "HCM_ADMIN_CONSOLE_FACILITY_NAME"
	ColumnFacilityUsage    = "HCM_ADMIN_CONSOLE_FACILITY_TYPE"
	ColumnFacilityStatus   = "HCM_ADMIN_CONSOLE_FACILITY_STATUS"
	ColumnFacilityCapacity = "HCM_ADMIN_CONSOLE_FACILITY_CAPACITY"

	ColumnUserName       = "HCM_ADMIN_CONSOLE_USER_NAME"
	ColumnUserPhone      = "HCM_ADMIN_CONSOLE_USER_PHONE_NUMBER"
	ColumnUserRole       = "HCM_ADMIN_CONSOLE_USER_ROLE"
	ColumnUserEmployment = "HCM_ADMIN_CONSOLE_USER_EMPLOYMENT_TYPE"
	ColumnUserLoginName  = "UserName"
	ColumnUserPassword   = "Password"

	ColumnBoundaryID   = "HCM_ADMIN_CONSOLE_BOUNDARY_ID"
	ColumnBoundaryType = "HCM_ADMIN_CONSOLE_BOUNDARY_TYPE"
	ColumnBoundaryName = "HCM_ADMIN_CONSOLE_BOUNDARY_NAME"
	ColumnParentCode   = "HCM_ADMIN_CONSOLE_PARENT_BOUNDARY_CODE"
)
