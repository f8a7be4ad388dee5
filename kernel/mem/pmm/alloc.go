package pmm

import "rvkernel/kernel/mem"

// Alloc finds the first run of numPages consecutive free pages, marks them
// taken and returns the physical address of the first page. The returned
// region is zeroed.
func Alloc(numPages int) (uintptr, error) {
	if numPages <= 0 {
		return 0, ErrZeroPagesRequested
	}

	descriptors := heap.descriptors
	run := 0
	for i := 0; i < len(descriptors); i++ {
		if descriptors[i] != Empty {
			run = 0
			continue
		}

		run++
		if run != numPages {
			continue
		}

		start := i - numPages + 1
		markRun(descriptors, start, numPages)
		addr := pageAddr(start)
		mem.Memset(addr, 0, mem.Size(numPages)*mem.PageSize)
		return addr, nil
	}

	return 0, ErrNoFreeContiguousSpace
}

func markRun(descriptors []Descriptor, start, numPages int) {
	if numPages == 1 {
		descriptors[start] = FirstAndLast
		return
	}

	descriptors[start] = FirstTaken
	for i := start + 1; i < start+numPages-1; i++ {
		descriptors[i] = Middle
	}
	descriptors[start+numPages-1] = Last
}

// Dealloc returns the page run starting at addr to the free pool. addr must
// be the address originally returned by Alloc; every page in the run is
// zeroed before being marked Empty.
func Dealloc(addr uintptr) error {
	if addr < heap.allocStart || addr > heap.end {
		return ErrNonHeapAddress
	}

	offset := addr - heap.allocStart
	if offset%uintptr(mem.PageSize) != 0 {
		return ErrNonPageAddress
	}

	start := int(offset / uintptr(mem.PageSize))
	descriptors := heap.descriptors

	switch descriptors[start] {
	case FirstAndLast:
		descriptors[start] = Empty
		mem.Memset(pageAddr(start), 0, mem.Size(mem.PageSize))
		return nil

	case FirstTaken:
		end := start + 1
		for ; end < len(descriptors); end++ {
			switch descriptors[end] {
			case Middle:
				continue
			case Last:
				numPages := end - start + 1
				for i := start; i <= end; i++ {
					descriptors[i] = Empty
				}
				mem.Memset(pageAddr(start), 0, mem.Size(numPages)*mem.PageSize)
				return nil
			default:
				return ErrCorruptDescriptorRun
			}
		}
		return ErrCorruptDescriptorRun

	default:
		return ErrPageNotLeading
	}
}
