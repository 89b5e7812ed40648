package snapshot

const (
	// snapshot.ini
	SnapshotINIFilename   = "snapshot.ini"
	SnapshotSectionName   = "snapshot"
	VersionKey            = "version"
	DescriptionKey        = "description"
	DeviceListSectionName = "device_list"

	// device ini files
	DeviceSectionName     = "device"
	DeviceNameKey         = "name"
	DeviceClassKey        = "class"
	DeviceTypeKey         = "type"
	DumpFileSectionPrefix = "dump"
	DumpAddressKey        = "address"
	DumpLengthKey         = "length"
	DumpOffsetKey         = "offset"
	DumpFileKey           = "file"
	DumpSpaceKey          = "space"
)
