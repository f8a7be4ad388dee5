package trap

import "testing"

func frameFor(mcause, mepc uint64) *Frame {
	return &Frame{Mcause: mcause, Mepc: mepc}
}

func TestRecoverableExceptionsSkipTrappingInstruction(t *testing.T) {
	for _, cause := range []uint64{CauseBreakpoint, CauseUserEnvironmentCall, CauseSupervisorEnvironmentCall} {
		f := frameFor(cause, 0x1000)
		if got := Dispatch(f); got != 0x1004 {
			t.Fatalf("cause %d: expected return PC 0x1004, got %#x", cause, got)
		}
	}
}

func TestFatalExceptionsShutDown(t *testing.T) {
	defer func(fn func()) { shutdownFn = fn }(shutdownFn)

	fatalCauses := []uint64{
		CauseInstructionAddressMisaligned,
		CauseInstructionAccessFault,
		CauseIllegalInstruction,
		CauseLoadAddressMisaligned,
		CauseLoadAccessFault,
		CauseStoreAddressMisaligned,
		CauseStoreAccessFault,
		CauseMachineEnvironmentCall,
		CauseInstructionPageFault,
		CauseLoadPageFault,
		CauseStorePageFault,
	}

	for _, cause := range fatalCauses {
		var haltCalled bool
		shutdownFn = func() { haltCalled = true }

		if got := Dispatch(frameFor(cause, 0x2000)); got != 0 {
			t.Fatalf("cause %d: expected the fatal path to return 0, got %#x", cause, got)
		}
		if !haltCalled {
			t.Fatalf("cause %d: expected the fatal path to halt the hart", cause)
		}
	}
}

func TestTimerInterruptRearmsAndResumes(t *testing.T) {
	defer func(fn func()) { rearmTimerFn = fn }(rearmTimerFn)

	for _, cause := range []uint64{IntSupervisorTimer, IntMachineTimer} {
		rearmed := false
		rearmTimerFn = func() { rearmed = true }

		f := frameFor(interruptBit|cause, 0x3000)
		if got := Dispatch(f); got != 0x3000 {
			t.Fatalf("cause %d: expected the interrupted PC back, got %#x", cause, got)
		}
		if !rearmed {
			t.Fatalf("cause %d: expected the timer to be rearmed", cause)
		}
	}
}

func TestExternalInterruptRoutesUARTAndCompletes(t *testing.T) {
	defer func(c func() uint32, d func(uint32), u func()) {
		claimFn, completeFn, uartInterruptFn = c, d, u
	}(claimFn, completeFn, uartInterruptFn)

	var (
		uartHandled bool
		completed   uint32
	)
	claimFn = func() uint32 { return 10 }
	completeFn = func(id uint32) { completed = id }
	uartInterruptFn = func() { uartHandled = true }

	Dispatch(frameFor(interruptBit|IntMachineExternal, 0x4000))

	if !uartHandled {
		t.Fatal("expected the UART handler to run for source 10")
	}
	if completed != 10 {
		t.Fatalf("expected source 10 to be completed at the PLIC, got %d", completed)
	}
}

func TestExternalInterruptRoutesVirtioHandler(t *testing.T) {
	defer func(c func() uint32, d func(uint32)) { claimFn, completeFn = c, d }(claimFn, completeFn)
	defer func() { externalHandlers[3] = nil }()

	var (
		handled   bool
		completed uint32
	)
	claimFn = func() uint32 { return 3 }
	completeFn = func(id uint32) { completed = id }
	if err := RegisterExternalHandler(3, func() { handled = true }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	Dispatch(frameFor(interruptBit|IntSupervisorExternal, 0x5000))

	if !handled {
		t.Fatal("expected the registered virtio handler to run for source 3")
	}
	if completed != 3 {
		t.Fatalf("expected source 3 to be completed at the PLIC, got %d", completed)
	}
}

func TestSpuriousExternalInterruptStillCompletes(t *testing.T) {
	defer func(c func() uint32, d func(uint32)) { claimFn, completeFn = c, d }(claimFn, completeFn)

	var completed uint32
	claimFn = func() uint32 { return 31 }
	completeFn = func(id uint32) { completed = id }

	Dispatch(frameFor(interruptBit|IntMachineExternal, 0x6000))

	if completed != 31 {
		t.Fatalf("expected even a spurious source to be completed, got %d", completed)
	}
}

func TestExternalInterruptWithNothingClaimedCompletesNothing(t *testing.T) {
	defer func(c func() uint32, d func(uint32)) { claimFn, completeFn = c, d }(claimFn, completeFn)

	claimFn = func() uint32 { return 0 }
	completeFn = func(uint32) { t.Fatal("expected no completion write when the claim came back empty") }

	Dispatch(frameFor(interruptBit|IntMachineExternal, 0x7000))
}

func TestSoftwareInterruptIsCleared(t *testing.T) {
	defer func(fn func()) { clearSoftwareIRQFn = fn }(clearSoftwareIRQFn)

	cleared := false
	clearSoftwareIRQFn = func() { cleared = true }

	Dispatch(frameFor(interruptBit|IntMachineSoftware, 0x8000))

	if !cleared {
		t.Fatal("expected the software interrupt to be acknowledged at the CLINT")
	}
}

func TestRegisterExternalHandlerRejectsOutOfRangeSource(t *testing.T) {
	if err := RegisterExternalHandler(0, func() {}); err != ErrInvalidExternalSource {
		t.Fatalf("expected ErrInvalidExternalSource for source 0, got %v", err)
	}
	if err := RegisterExternalHandler(lastVirtioSource+1, func() {}); err != ErrInvalidExternalSource {
		t.Fatalf("expected ErrInvalidExternalSource past the virtio range, got %v", err)
	}
}

func TestCauseMasksInterruptBit(t *testing.T) {
	f := frameFor(interruptBit|IntMachineTimer, 0)
	if !f.IsInterrupt() {
		t.Fatal("expected the interrupt bit to classify the trap as an interrupt")
	}
	if f.Cause() != IntMachineTimer {
		t.Fatalf("expected Cause to mask the interrupt bit, got %d", f.Cause())
	}
}
