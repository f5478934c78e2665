package session

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/corescan/sane/internal/assemble"
	"github.com/corescan/sane/internal/calib"
	"github.com/corescan/sane/internal/command"
	"github.com/corescan/sane/internal/device"
	"github.com/corescan/sane/internal/motor"
	"github.com/corescan/sane/internal/sanecore"
)

// baseUnitsPerInch is the scanner's 1/1200" base unit (mmToBaseUnits
// converts millimetres to it) used by the on-wire window fields (spec.md §4.B Window.UpperLeftX/Y).
const baseUnitsPerInch = 1200

func mmToBaseUnits(mm float64) uint32 {
	return uint32(mm/mmPerInch*baseUnitsPerInch + 0.5)
}

// imageComposition maps a scan Mode onto the device's ImageComposition
// wire encoding (spec.md §4.B: "image-composition" is an on-wire
// invariant).
func imageComposition(m device.Mode) uint8 {
	switch m {
	case device.ModeLineart:
		return 0x00
	case device.ModeHalftone:
		return 0x01
	case device.ModeGray:
		return 0x02
	case device.ModeColor:
		return 0x05
	default:
		return 0x02
	}
}

// readChunkLines is how many assembled lines worth of bytes one READ_10
// image-data command asks for at a time.
const readChunkLines = 8

// fifoOverflowThresh/minSpeedIndex/maxSpeedIndex parameterise the
// motor.Pacer driving the FIFO-paced read loop (spec.md §4.D).
const (
	fifoOverflowThresh = 4096
	minSpeedIndex       = 1
	maxSpeedIndex       = 34
)

// Start implements spec.md §4.G start(): TEST_UNIT_READY (already run at
// Open, re-run here since it is the first step of every scan per §4.B) ->
// wait_document (manual-feed only) -> reset_window -> set_window FRONT
// (+BACK if duplex) -> SCAN -> READ_10/0x80 for exact geometry ->
// GET_ADJUST_DATA for duplex, grounded on kvs20xx_cmd.c's
// kvs20xx_scan/kvs20xx_read_image_data call sequence. On success the
// Session transitions to SCANNING_SIDE_FRONT (or _BACK for the duplex
// second side of an already-started page) and Params are frozen.
func (s *Session) Start(ctx context.Context) error {
	switch s.state {
	case StateConfigured:
		s.page = 1
		s.currentSide = command.SideFront
	case StatePageEOF:
		if err := s.advancePage(ctx); err != nil {
			return err
		}
	case StateFaulted:
		if !s.isCancelled() {
			return sanecore.New(sanecore.KindInval, fmt.Errorf("session: start refused, faulted until cancel"))
		}
		s.faultErr = nil
		s.page = 1
		s.currentSide = command.SideFront
	case StateCancelled:
		s.page = 1
		s.currentSide = command.SideFront
	default:
		return sanecore.New(sanecore.KindInval, fmt.Errorf("session: start from state %s", s.state))
	}

	s.mu.Lock()
	s.cancelled = false
	s.cancelHalt = false
	s.mu.Unlock()

	if err := s.testUnitReadyRetry(ctx); err != nil {
		return s.fault(err)
	}

	if s.values.ManualFeed {
		if err := s.waitDocument(ctx); err != nil {
			return s.fault(err)
		}
	}

	// reset_window: a zero-payload SET_WINDOW clears any window left over
	// from a prior aborted scan before the real one below is sent.
	if _, err := s.sendChecked(ctx, command.CDB(command.OpSetWindow), command.DirNone, nil); err != nil {
		return s.fault(err)
	}
	if err := s.setWindow(ctx, command.SideFront); err != nil {
		return s.fault(err)
	}
	if s.values.Duplex {
		if err := s.setWindow(ctx, command.SideBack); err != nil {
			return s.fault(err)
		}
	}

	if _, err := s.sendChecked(ctx, command.CDB(command.OpScan), command.DirNone, nil); err != nil {
		return s.fault(err)
	}

	params := ComputeParams(s.values, s.device)
	if pixels, lines, err := s.read10PixelCount(ctx); err == nil {
		params.PixelsPerLine = pixels
		params.Lines = lines
		bitsPerLine := params.Depth * pixels
		if params.Format == FormatRGB {
			bitsPerLine *= 3
		}
		params.BytesPerLine = (bitsPerLine + 7) / 8
	}

	if s.values.Duplex && s.currentSide == command.SideBack {
		dummy, err := s.getAdjustData(ctx)
		if err == nil {
			s.duplexSkip = motor.DuplexOffsetLines(dummy, int(s.values.ResolutionY)) * params.BytesPerLine
			s.skipPending = s.duplexSkip
		}
	} else {
		s.duplexSkip = 0
		s.skipPending = 0
	}

	s.params = params
	if err := s.runMotorSequence(ctx); err != nil {
		return s.fault(err)
	}

	ringSize := params.BytesPerLine * readChunkLines * 4
	s.asm = assemble.NewAssembler(s.device.ColorScheme, params.BytesPerLine, params.PixelsPerLine, params.PixelsPerLine, s.values.Mode == device.ModeLineart, ringSize)
	s.pacer = motor.NewPacer(fifoOverflowThresh, minSpeedIndex, maxSpeedIndex, maxSpeedIndex/2)

	if s.currentSide == command.SideFront {
		s.state = StateScanningFront
	} else {
		s.state = StateScanningBack
	}
	return nil
}

// advancePage decides what the next Start call does from StatePageEOF:
// flip to the BACK side of the page just finished (duplex), or probe for
// another document and move to the next page (spec.md §8 scenario 3).
func (s *Session) advancePage(ctx context.Context) error {
	if s.values.Duplex && s.currentSide == command.SideFront {
		s.currentSide = command.SideBack
		return nil
	}
	present, err := s.probeDocumentPresent(ctx)
	if err != nil {
		return s.fault(err)
	}
	if !present {
		return sanecore.New(sanecore.KindNoDocs, nil)
	}
	s.page++
	s.currentSide = command.SideFront
	return nil
}

// runMotorSequence drives the INIT..SCAN_ACTIVE prefix of spec.md §4.D's
// state graph for one Start call: homing, warmup gating (skipped if the
// lamp was warmed up recently enough, spec.md §8 scenario 2), calibration
// (skipped via the "clever precalibration" cache when compatible, spec.md
// §4.C), park and fast-move to the scan origin.
func (s *Session) runMotorSequence(ctx context.Context) error {
	s.motor = motor.NewMachine()
	steps := []motor.State{motor.StateHoming, motor.StateSettle}
	for _, st := range steps {
		if err := s.motor.Advance(st); err != nil {
			return sanecore.New(sanecore.KindIOError, err)
		}
	}

	if err := s.warmup(ctx); err != nil {
		return err
	}
	if err := s.motor.Advance(motor.StateWarmup); err != nil {
		return sanecore.New(sanecore.KindIOError, err)
	}

	sense := calib.ModeSense{Variant: s.calibVariant(), Color: s.values.Mode != device.ModeLineart}
	if !s.noRealCal && (s.noPrecal || s.precal.NeedsFullCalibration(sense)) {
		s.precal.Record(sense, s.runCalibration(ctx, sense))
	}
	if err := s.motor.Advance(motor.StateCalibrate); err != nil {
		return sanecore.New(sanecore.KindIOError, err)
	}
	if err := s.motor.Advance(motor.StatePark); err != nil {
		return sanecore.New(sanecore.KindIOError, err)
	}
	if err := s.motor.Advance(motor.StateFastMove); err != nil {
		return sanecore.New(sanecore.KindIOError, err)
	}
	if err := s.motor.Advance(motor.StateScanActive); err != nil {
		return sanecore.New(sanecore.KindIOError, err)
	}
	return nil
}

// warmup gates on the lamp warmup timer (spec.md §5: "Lamp-warmup timer is
// per Device and is advanced by every start"): if no scan has ended yet, or
// the time since the last scan ended exceeds warmupS, wait warmupS,
// otherwise proceed immediately.
func (s *Session) warmup(ctx context.Context) error {
	if !s.lastScanEnd.IsZero() && time.Since(s.lastScanEnd) <= s.warmupS {
		return nil
	}
	return s.sleep(ctx, s.warmupS)
}

func (s *Session) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return sanecore.New(sanecore.KindCancelled, ctx.Err())
	}
}

func (s *Session) calibVariant() calib.Variant {
	switch s.values.Source {
	case device.SourceTPA:
		return calib.VariantTransparency
	case device.SourceNeg:
		return calib.VariantNegative
	default:
		return calib.VariantReflection
	}
}

// runCalibration drives the three coordinated calibration phases (spec.md
// §4.C: dark-offset trim, gain trim, per-pixel shading) against the
// reference strip under the parked carriage, reprogramming
// RegDarkOffset*/RegGain* between samples and reading raw reference rows
// back via BurstRead. These are parallel-port register primitives
// (spec.md §4.A); USB/SCSI transports return ErrUnsupported for them by
// design, so a device opened over USB/SCSI records empty Artifacts here
// rather than failing the scan outright — full calibration is only live
// over the register-addressable transport variant.
func (s *Session) runCalibration(ctx context.Context, sense calib.ModeSense) calib.Artifacts {
	var arts calib.Artifacts

	table := calib.TableFor(sense.Variant)
	if err := s.tr.RegisterWrite(command.RegDarkOffsetRed, table[0].DarkOffsetSubtract); err != nil {
		return arts
	}

	pixelsPerLine := ComputeParams(s.values, s.device).PixelsPerLine
	if pixelsPerLine <= 0 {
		pixelsPerLine = 1
	}
	darkRegs := [3]command.Reg{command.RegDarkOffsetRed, command.RegDarkOffsetGreen, command.RegDarkOffsetBlue}
	gainRegs := [3]command.Reg{command.RegGainRed, command.RegGainGreen, command.RegGainBlue}

	sampleRow := func() []byte {
		row := make([]byte, pixelsPerLine)
		s.tr.BurstRead(row)
		return row
	}
	darkestOf := func(row []byte) uint8 {
		darkest := uint8(255)
		for _, b := range row {
			if b < darkest {
				darkest = b
			}
		}
		return darkest
	}
	toUint16Row := func(row []byte) []uint16 {
		out := make([]uint16, len(row))
		for i, b := range row {
			out[i] = uint16(b)
		}
		return out
	}

	for ch := 0; ch < 3; ch++ {
		if ctx.Err() != nil {
			return arts
		}
		win := table[ch]
		reg, _ := calib.TrimDarkOffset(win, win.DarkOffsetSubtract, func(reg uint8) uint8 {
			s.tr.RegisterWrite(darkRegs[ch], reg)
			return darkestOf(sampleRow())
		})
		arts.DarkOffset[ch] = reg

		gain := calib.TrimGain(win, win.MinGain, func(g uint8) []uint16 {
			s.tr.RegisterWrite(gainRegs[ch], g)
			return toUint16Row(sampleRow())
		})
		arts.Gain[ch] = gain
	}

	lines := make([][]uint16, calib.ShadingLines)
	for i := range lines {
		if ctx.Err() != nil {
			return arts
		}
		lines[i] = toUint16Row(sampleRow())
	}
	for ch := 0; ch < 3; ch++ {
		arts.Shading[ch] = calib.ComputeShading(lines, nil)
	}
	return arts
}

// setWindow builds a Window from the current OptionValues/Device and
// issues SET_WINDOW for side (spec.md §4.B).
func (s *Session) setWindow(ctx context.Context, side command.Side) error {
	w := command.Window{
		Side:             side,
		ResolutionX:      uint16(s.values.ResolutionX),
		ResolutionY:      uint16(s.values.ResolutionY),
		UpperLeftX:       mmToBaseUnits(s.values.BBox.TLX),
		UpperLeftY:       mmToBaseUnits(s.values.BBox.TLY),
		Width:            mmToBaseUnits(s.values.BBox.BRX - s.values.BBox.TLX),
		Length:           mmToBaseUnits(s.values.BBox.BRY - s.values.BBox.TLY),
		Brightness:       uint8(s.values.Brightness + 128),
		Threshold:        uint8(s.values.Threshold),
		Contrast:         uint8(s.values.Contrast + 128),
		ImageComposition: imageComposition(s.values.Mode),
		BitsPerPixel:     uint8(ComputeParams(s.values, s.device).Depth),
		BitOrdering:      command.BitOrderingLeftToRight,
		LampMode:         uint8(s.values.LampDropout),
		ImageEmphasis:    uint8(s.values.ImageEmphasis),
		Landscape:        s.values.Landscape,
	}
	if s.values.DoubleFeed {
		w.DoubleFeedSens = true
	}
	if s.values.ManualFeed {
		w.ContinuousScan = true
	}
	enc := w.Encode()
	_, err := s.sendChecked(ctx, command.CDB(command.OpSetWindow, byte(side)), command.DirOut, enc[:])
	return err
}

// waitDocument polls READ_10/0x81 once per second up to FeedTimeout
// (spec.md §5: "polls once per second up to FEED_TIMEOUT").
func (s *Session) waitDocument(ctx context.Context) error {
	deadline := time.Now().Add(time.Duration(s.values.FeedTimeout) * time.Second)
	for {
		if s.isCancelled() {
			return sanecore.New(sanecore.KindCancelled, nil)
		}
		present, err := s.probeDocumentPresent(ctx)
		if err != nil {
			return err
		}
		if present {
			return nil
		}
		if time.Now().After(deadline) {
			return sanecore.New(sanecore.KindNoDocs, nil)
		}
		if err := s.sleep(ctx, time.Second); err != nil {
			return err
		}
	}
}

func (s *Session) probeDocumentPresent(ctx context.Context) (bool, error) {
	payload, err := s.sendChecked(ctx, command.Read10CDB(command.Read10DocumentProbe, s.page, s.currentSide, 0), command.DirIn, make([]byte, 1))
	if err != nil {
		if sanecore.KindOf(err) == sanecore.KindNoDocs {
			return false, nil
		}
		return false, err
	}
	return len(payload) > 0 && payload[0] != 0, nil
}

// read10PixelCount issues READ_10/0x80 to obtain the exact captured
// geometry (spec.md §4.G start()): an 8-byte response, BE32 pixels-per-line
// followed by BE32 lines.
func (s *Session) read10PixelCount(ctx context.Context) (pixels, lines int, err error) {
	payload, err := s.sendChecked(ctx, command.Read10CDB(command.Read10PixelCount, s.page, s.currentSide, 0), command.DirIn, make([]byte, 8))
	if err != nil {
		return 0, 0, err
	}
	if len(payload) < 8 {
		return 0, 0, fmt.Errorf("session: short pixel-count response: %d bytes", len(payload))
	}
	return int(binary.BigEndian.Uint32(payload[0:4])), int(binary.BigEndian.Uint32(payload[4:8])), nil
}

func (s *Session) getAdjustData(ctx context.Context) (uint16, error) {
	payload, err := s.sendChecked(ctx, command.CDB(command.OpGetAdjustData), command.DirIn, make([]byte, command.GetAdjustDataLen))
	if err != nil {
		return 0, err
	}
	return command.DecodeAdjustData(payload), nil
}

// Read implements spec.md §6.1 read(h, buf, max): drains the assembled
// ring, pulling more image data from the device (paced by the FIFO
// occupancy pacer) when the ring runs dry, and discarding the duplex
// alignment skip at the start of a BACK side (spec.md §4.D Duplex
// alignment, §8 property 5).
func (s *Session) Read(ctx context.Context, buf []byte) (int, error) {
	if s.state == StateFaulted {
		return 0, s.faultErr
	}
	if s.isCancelled() {
		return 0, s.runCancelHoming()
	}

	for s.asm.CompleteCount() == 0 {
		n, err := s.fetchMore(ctx)
		if err != nil {
			return 0, s.fault(err)
		}
		if n == 0 {
			return 0, s.endOfSide()
		}
		if s.isCancelled() {
			return 0, s.runCancelHoming()
		}
	}

	if s.skipPending > 0 {
		discard := make([]byte, s.skipPending)
		got := s.asm.Drain(discard)
		s.skipPending -= got
		if s.asm.CompleteCount() == 0 {
			return 0, nil
		}
	}

	n := s.asm.Drain(buf)
	return n, nil
}

// fetchMore issues one READ_10 image-data command, paced by the FIFO
// occupancy pacer (spec.md §4.D FIFO-paced read loop), and feeds the
// result into the line assembler. A zero-length payload signals the
// device has nothing further for this side.
func (s *Session) fetchMore(ctx context.Context) (int, error) {
	length := s.params.BytesPerLine * readChunkLines
	if length <= 0 {
		length = 512
	}

	if avail, err := s.pollBufferStatus(ctx); err == nil {
		s.pacer.Poll(avail)
	}

	payload, err := s.sendChecked(ctx, command.Read10CDB(command.Read10ImageData, s.page, s.currentSide, uint32(length)), command.DirIn, make([]byte, length))
	if err != nil {
		if sanecore.KindOf(err) == sanecore.KindEOF {
			return 0, nil
		}
		return 0, err
	}
	if len(payload) == 0 {
		return 0, nil
	}
	s.asm.Feed(payload)
	return len(payload), nil
}

// bufferStatusRespLen is the actual USB response block size for
// GET_BUFFER_STATUS: the CDB itself is command.GetBufferStatusLen bytes,
// but the bytes-available field spec.md §4.B places at offset 12 requires
// a 16-byte response buffer.
const bufferStatusRespLen = 16

func (s *Session) pollBufferStatus(ctx context.Context) (int, error) {
	payload, err := s.sendChecked(ctx, command.CDB(command.OpGetBufferStatus), command.DirIn, make([]byte, bufferStatusRespLen))
	if err != nil {
		return 0, err
	}
	return int(command.DecodeBufferStatus(payload)), nil
}

// endOfSide transitions the motor state machine and SessionFSM state at
// the natural end of one side's data (spec.md §4.D EOF_PAGE; §8 scenario
// 3's FRONT/BACK/page sequencing).
func (s *Session) endOfSide() error {
	_ = s.motor.Advance(motor.StateEOFPage)
	s.lastScanEnd = time.Now()
	if s.values.Duplex && s.currentSide == command.SideFront {
		_ = s.motor.Advance(motor.StatePark)
	} else {
		_ = s.motor.Advance(motor.StateDone)
		_ = s.motor.Advance(motor.StateHoming)
		_ = s.motor.Advance(motor.StateIdle)
	}
	s.state = StatePageEOF
	return sanecore.New(sanecore.KindEOF, nil)
}

// isCancelled reports the sticky cancel flag (spec.md §5: "cancel is
// sticky until close or a successful next start").
func (s *Session) isCancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}

// runCancelHoming performs the "always passes through HOMING before IDLE"
// transition exactly once per cancel (spec.md §4.D), then returns
// CANCELLED on this and every subsequent Read call until Cancel's
// stickiness is cleared by a successful Start.
func (s *Session) runCancelHoming() error {
	s.mu.Lock()
	already := s.cancelHalt
	s.cancelHalt = true
	s.mu.Unlock()

	if !already && s.motor != nil {
		s.motor.Cancel()
		_ = s.motor.Advance(motor.StateHoming)
		_ = s.motor.Advance(motor.StateIdle)
	}
	s.state = StateCancelled
	return sanecore.New(sanecore.KindCancelled, nil)
}

// Cancel implements spec.md §4.G cancel(): never blocks, only requests
// that the next blocking operation (Read, or Start's document wait) abort
// at its next natural boundary (spec.md §5).
func (s *Session) Cancel() {
	s.mu.Lock()
	s.cancelled = true
	s.mu.Unlock()
	if s.motor != nil {
		s.motor.Cancel()
	}
}

// Close implements spec.md §4.G close(): frees calibration artifacts,
// releases the transport, and runs HOMING before the Device's open-Session
// claim is released.
func (s *Session) Close() error {
	if s.motor != nil && s.motor.Current() != motor.StateIdle {
		_ = s.motor.Advance(motor.StateHoming)
		_ = s.motor.Advance(motor.StateIdle)
	}
	err := s.tr.Close()
	s.registry.Close(s.device)
	s.state = StateIdle
	if err != nil {
		return sanecore.New(sanecore.KindIOError, err)
	}
	return nil
}

// GetParameters implements spec.md §4.G get_parameters(): a pure function
// of OptionValues/Device caps while not scanning, or the frozen
// per-scan Params while SCANNING_SIDE_FRONT/_BACK (spec.md §8 property 2).
func (s *Session) GetParameters() Params {
	if s.state == StateScanningFront || s.state == StateScanningBack {
		return s.params
	}
	return ComputeParams(s.values, s.device)
}

// fault transitions the Session to FAULTED and records err as the sticky
// error every subsequent Read/Start will return until Cancel then a
// successful Start (spec.md §7: "after any non-EOF error during read, the
// session is in FAULTED... start from FAULTED is rejected with INVAL until
// cancel has been called").
func (s *Session) fault(err error) error {
	s.state = StateFaulted
	s.faultErr = err
	return err
}
