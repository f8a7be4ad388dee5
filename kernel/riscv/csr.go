// Package riscv provides typed access to the RISC-V privileged control and
// status registers (CSRs) used by this kernel. Every function here is a
// thin Go declaration backed by a handful of instructions in csr_riscv64.s;
// no other package in this tree emits raw RISC-V instructions except the
// boot stub and the trap entry/exit stub, both out of scope for this
// repository.
package riscv

// ReadMstatus reads the machine-mode status register.
func ReadMstatus() uint64

// WriteMstatus writes the machine-mode status register.
func WriteMstatus(v uint64)

// ReadSstatus reads the supervisor-mode status register.
func ReadSstatus() uint64

// WriteSstatus writes the supervisor-mode status register.
func WriteSstatus(v uint64)

// ReadMscratch reads mscratch.
func ReadMscratch() uint64

// WriteMscratch writes mscratch. kinit parks the kernel TrapFrame pointer
// here so the trap entry stub can recover it on the first instruction of
// every trap.
func WriteMscratch(v uint64)

// ReadSscratch reads sscratch.
func ReadSscratch() uint64

// WriteSscratch writes sscratch.
func WriteSscratch(v uint64)

// ReadMepc reads mepc, the machine exception program counter.
func ReadMepc() uint64

// WriteMepc writes mepc.
func WriteMepc(v uint64)

// ReadSepc reads sepc.
func ReadSepc() uint64

// WriteSepc writes sepc.
func WriteSepc(v uint64)

// ReadSatp reads satp, the Sv39 root table pointer and mode.
func ReadSatp() uint64

// WriteSatp writes satp. The caller must issue SfenceVMA afterwards if any
// translation that might already be TLB-cached changed.
func WriteSatp(v uint64)

// ReadMtvec reads mtvec, the machine trap vector base address.
func ReadMtvec() uint64

// WriteMtvec writes mtvec.
func WriteMtvec(v uint64)

// ReadStvec reads stvec.
func ReadStvec() uint64

// WriteStvec writes stvec.
func WriteStvec(v uint64)

// ReadMcause reads mcause, the trap cause register.
func ReadMcause() uint64

// ReadMie reads mie, the machine interrupt-enable register.
func ReadMie() uint64

// WriteMie writes mie.
func WriteMie(v uint64)

// ReadMtval reads mtval, the trap value register (faulting address or
// instruction, depending on cause).
func ReadMtval() uint64

// SfenceVMA flushes the entire TLB. This kernel has no use for the
// single-address form since a single hart with no per-process address
// spaces has nothing to gain from a partial flush.
func SfenceVMA()

// WFI executes the wait-for-interrupt instruction, idling the hart until
// the next interrupt arrives.
func WFI()

// Shutdown idles the hart forever. Used by kernel.Panic and by the trap
// dispatcher's fatal path; it never returns.
func Shutdown() {
	for {
		WFI()
	}
}

// Mret executes the mret instruction, returning from machine mode to the
// privilege level recorded in mstatus.MPP at the address in mepc. It never
// returns to its caller. kinit.EnterSupervisor is the only caller: every
// other privilege-mode transition in this kernel happens through a trap.
func Mret()
