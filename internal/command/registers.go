package command

// Reg identifies a named parallel-port ASIC register (spec.md §4.B:
// "≈80 named registers: motor control, step control, DPI low/high, origin
// low/high, pixels low/high, CCD timing phases..., dark-offset per
// channel, FIFO depths per channel, threshold, model control, scan-state
// memory window..."). Addresses are grounded on
// original_source/.../plustek-pp_hwdefs.h; only the subset this backend's
// MotorPlanner/Calibration/LineAssembler actually drive is named here —
// any other address in the ~80-register space can be used by converting
// it to Reg directly.
type Reg byte

const (
	RegBitDepth           Reg = 0x13
	RegStepControl        Reg = 0x14
	RegMotor0Control      Reg = 0x15
	RegGetScanState       Reg = 0x17
	RegMemoryLow          Reg = 0x19
	RegMemoryHigh         Reg = 0x1a
	RegModeControl        Reg = 0x1b
	RegLineControl        Reg = 0x1c
	RegScanControl        Reg = 0x1d
	RegConfiguration      Reg = 0x1e
	RegModelControl       Reg = 0x1f
	RegModel1Control      Reg = 0x20
	RegThresholdGap       Reg = 0x29
	RegResetConfig        Reg = 0x2e
	RegDPILow             Reg = 0x30
	RegDPIHigh            Reg = 0x31
	RegOriginLow          Reg = 0x32
	RegOriginHigh         Reg = 0x33
	RegPixelsLow          Reg = 0x34
	RegPixelsHigh         Reg = 0x35
	RegDarkOffsetRed      Reg = 0x40
	RegDarkOffsetGreen    Reg = 0x41
	RegDarkOffsetBlue     Reg = 0x42
	RegGainRed            Reg = 0x43
	RegGainGreen          Reg = 0x44
	RegGainBlue           Reg = 0x45
	RegFifoDepthRed       Reg = 0x50
	RegFifoDepthGreen     Reg = 0x51
	RegFifoDepthBlue      Reg = 0x52
	RegFifoOffset         Reg = 0x53
	RegFifoFullLength     Reg = 0x54
	RegScanControl1       Reg = 0x5b
	RegScanStateControl   Reg = 0x60
	RegMotorDriverType    Reg = 0x64
	RegStatus2            Reg = 0x66
	RegTestMode           Reg = 0xf0
)

// ScanStateProgramSize is the size in bytes of the 64-slot, nibble-packed
// scan-state microprogram downloaded to device SRAM (spec.md §3
// MotorProgram, §4.D, §6.3).
const ScanStateProgramSize = 32

// ModelControlByte carries the model-select bits written to
// RegModelControl to pick between ASIC generations/CCD wiring (spec.md
// §3 Device "opaque model-id").
type ModelControlByte byte
