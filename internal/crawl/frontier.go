package crawl

// frontier is a deque of URLs. It is owned by the coordinator goroutine and
// is not safe for concurrent use.
type frontier struct {
	buf  []string
	head int
}

func (f *frontier) len() int { return len(f.buf) - f.head }

func (f *frontier) pushBack(u string) { f.buf = append(f.buf, u) }

func (f *frontier) pushFront(u string) {
	if f.head > 0 {
		f.head--
		f.buf[f.head] = u
		return
	}
	// grow room at the front
	n := len(f.buf) + 1
	nb := make([]string, n, n*2)
	nb[0] = u
	copy(nb[1:], f.buf)
	f.buf = nb
}

func (f *frontier) push(u string, priority bool) {
	if priority {
		f.pushFront(u)
		return
	}
	f.pushBack(u)
}

func (f *frontier) peek() string { return f.buf[f.head] }

func (f *frontier) popFront() string {
	u := f.buf[f.head]
	f.buf[f.head] = ""
	f.head++
	if f.head == len(f.buf) {
		f.buf = f.buf[:0]
		f.head = 0
	}
	return u
}
