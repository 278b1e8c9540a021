package sapera

// Property names that are part of the camera API
const (
	PropName        = "Name"
	PropServer      = "AcquisitionDevice"
	PropPixelType   = "PixelType"
	PropExposure    = "Exposure"
	PropGain        = "Gain"
	PropBinning     = "Binning"
	PropCameraName  = "CameraName"
	PropCameraID    = "CameraID"
	PropImageWidth  = "ImageWidth"
	PropImageHeight = "ImageHeight"
)

// Hardware feature names the adapter itself relies on
const (
	featPixelFormat  = "PixelFormat"
	featPixelSize    = "PixelSize"
	featExposure     = "ExposureTime"
	featGain         = "Gain"
	featWidth        = "Width"
	featHeight       = "Height"
	featImageTimeout = "ImageTimeout"
	featBinningH     = "BinningHorizontal"
	featBinningV     = "BinningVertical"
	featSerial       = "DeviceSerialNumber"
	featModel        = "DeviceModelName"
	featTemperature  = "DeviceTemperature"
)

// syncKey names the resynchronize parameter a binding feeds, if any
type syncKey int

const (
	syncNone syncKey = iota
	syncPixelFormat
	syncWidth
	syncHeight
	syncTimeout
)

// binding ties an exposed property to a hardware feature
type binding struct {
	exposed  string
	feature  string
	readOnly bool

	// resync marks a feature whose write reshapes the acquisition pipeline
	resync syncKey

	// cached gets are served from the property without a hardware read
	cached bool

	// scale is hardware units per exposed unit, 0 means 1
	scale float64
}

// bindings is the ordered table of properties derived from features
var bindings = []binding{
	{exposed: PropPixelType, feature: featPixelFormat, resync: syncPixelFormat},
	{exposed: PropExposure, feature: featExposure, scale: 1000}, // us per ms
	{exposed: PropGain, feature: featGain},
	{exposed: "CameraVendor", feature: "DeviceVendorName", readOnly: true},
	{exposed: "CameraFamily", feature: "DeviceFamilyName", readOnly: true},
	{exposed: PropCameraName, feature: featModel, readOnly: true},
	{exposed: "CameraVersion", feature: "DeviceVersion", readOnly: true},
	{exposed: "CameraInfo", feature: "DeviceManufacturerInfo", readOnly: true},
	{exposed: "CameraPartNumber", feature: "deviceManufacturerPartNumber", readOnly: true},
	{exposed: "CameraFirmwareVersion", feature: "DeviceFirmwareVersion", readOnly: true},
	{exposed: "CameraSerialNumber", feature: featSerial, readOnly: true},
	{exposed: PropCameraID, feature: "DeviceUserID", readOnly: true},
	{exposed: "CameraMacAddress", feature: "deviceMacAddress", readOnly: true},
	{exposed: "SensorColorType", feature: "sensorColorType", readOnly: true},
	{exposed: "SensorPixelCoding", feature: "PixelCoding", readOnly: true},
	{exposed: "SensorBlackLevel", feature: "BlackLevel", readOnly: true},
	{exposed: "SensorPixelInput", feature: "pixelSizeInput", readOnly: true},
	{exposed: "SensorShutterMode", feature: "SensorShutterMode"},
	{exposed: "SensorBinningMode", feature: "binningMode", cached: true},
	{exposed: "SensorWidth", feature: "SensorWidth", readOnly: true},
	{exposed: "SensorHeight", feature: "SensorHeight", readOnly: true},
	{exposed: "ImagePixelSize", feature: featPixelSize, readOnly: true},
	{exposed: "ImageHorizontalOffset", feature: "OffsetX"},
	{exposed: "ImageVerticalOffset", feature: "OffsetY"},
	{exposed: PropImageWidth, feature: featWidth, resync: syncWidth},
	{exposed: PropImageHeight, feature: featHeight, resync: syncHeight},
	{exposed: "ImageTimeout", feature: featImageTimeout, resync: syncTimeout},
	{exposed: "TurboTransferEnable", feature: "turboTransferEnable", readOnly: true},
	{exposed: "SensorTemperature", feature: featTemperature, readOnly: true},
}
