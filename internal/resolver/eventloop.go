package resolver

import (
	"fmt"
	"net"
	"time"

	"golang.org/x/sys/unix"

	"github.com/nsserver/kdns/internal/dnswire"
)

const maxEpollEvents = 8

// upstreamPort is the fixed port every upstream query and referral is
// sent to. This server never forwards to a nonstandard port.
const upstreamPort = 53

// Run drives the single-threaded event loop until stop is closed or an
// unrecoverable error occurs. It multiplexes the downstream and upstream
// sockets on one epoll instance (golang.org/x/sys/unix), draining each
// ready socket to EAGAIN on every wakeup, and runs the pending-query
// expiry sweep whenever the epoll wait times out.
//
// Bind must have been called first. Run takes the raw socket descriptors
// for itself (bypassing the runtime network poller) so that readiness is
// genuinely decided by one epoll_wait call on one goroutine, matching the
// single-core, non-concurrent processing model this server requires.
func (l *Loop) Run(stop <-chan struct{}) error {
	downFD, err := rawFD(l.down)
	if err != nil {
		return fmt.Errorf("getting downstream fd: %w", err)
	}
	upFD, err := rawFD(l.up)
	if err != nil {
		return fmt.Errorf("getting upstream fd: %w", err)
	}
	l.downFD, l.upFD = downFD, upFD

	for _, fd := range []int{downFD, upFD} {
		if err := unix.SetNonblock(fd, true); err != nil {
			return fmt.Errorf("setting fd %d nonblocking: %w", fd, err)
		}
	}

	epfd, err := unix.EpollCreate1(0)
	if err != nil {
		return fmt.Errorf("epoll_create1: %w", err)
	}
	defer unix.Close(epfd)

	if err := registerFD(epfd, downFD); err != nil {
		return err
	}
	if err := registerFD(epfd, upFD); err != nil {
		return err
	}

	events := make([]unix.EpollEvent, maxEpollEvents)
	nextSweep := time.Now().Add(l.cfg.SweepInterval)

	for {
		select {
		case <-stop:
			return nil
		default:
		}

		timeoutMS := int(time.Until(nextSweep).Milliseconds())
		if timeoutMS < 0 {
			timeoutMS = 0
		}

		n, err := unix.EpollWait(epfd, events, timeoutMS)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return fmt.Errorf("epoll_wait: %w", err)
		}

		for i := 0; i < n; i++ {
			fd := int(events[i].Fd)
			switch fd {
			case downFD:
				l.drainDownstream()
			case upFD:
				l.drainUpstream()
			}
		}

		now := time.Now()
		if !now.Before(nextSweep) {
			if removed := l.tracker.SweepExpired(now); removed > 0 {
				l.logger.Debug("swept expired queries", "removed", removed)
			}
			nextSweep = now.Add(l.cfg.SweepInterval)
		}
	}
}

func registerFD(epfd, fd int) error {
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(fd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return fmt.Errorf("epoll_ctl add fd %d: %w", fd, err)
	}
	return nil
}

func rawFD(conn *net.UDPConn) (int, error) {
	sc, err := conn.SyscallConn()
	if err != nil {
		return 0, err
	}
	var fd int
	if ctrlErr := sc.Control(func(f uintptr) { fd = int(f) }); ctrlErr != nil {
		return 0, ctrlErr
	}
	return fd, nil
}

// drainDownstream reads from the downstream socket until EAGAIN, handing
// each datagram to onDownstreamPacket.
func (l *Loop) drainDownstream() {
	var buf [dnswire.PacketSize]byte
	for {
		n, from, err := unix.Recvfrom(l.downFD, buf[:], 0)
		if err != nil {
			if err != unix.EAGAIN {
				l.logger.Warn("downstream recv error", "error", err)
			}
			return
		}
		addr := sockaddrToUDPAddr(from)
		l.onDownstreamPacket(buf[:n], addr)
	}
}

// drainUpstream reads from the upstream socket until EAGAIN, handing each
// datagram to onUpstreamPacket.
func (l *Loop) drainUpstream() {
	var buf [dnswire.PacketSize]byte
	for {
		n, _, err := unix.Recvfrom(l.upFD, buf[:], 0)
		if err != nil {
			if err != unix.EAGAIN {
				l.logger.Warn("upstream recv error", "error", err)
			}
			return
		}
		l.onUpstreamPacket(buf[:n])
	}
}

func (l *Loop) sendDown(addr *net.UDPAddr, data []byte) {
	if err := unix.Sendto(l.downFD, data, 0, udpAddrToSockaddr(addr)); err != nil {
		l.logger.Warn("downstream send error", "to", addr, "error", err)
	}
}

func (l *Loop) sendUp(addr net.IP, data []byte) {
	sa := &unix.SockaddrInet4{Port: upstreamPort}
	copy(sa.Addr[:], addr.To4())
	if err := unix.Sendto(l.upFD, data, 0, sa); err != nil {
		l.logger.Warn("upstream send error", "to", addr, "error", err)
	}
}

func sockaddrToUDPAddr(sa unix.Sockaddr) *net.UDPAddr {
	switch s := sa.(type) {
	case *unix.SockaddrInet4:
		ip := make(net.IP, 4)
		copy(ip, s.Addr[:])
		return &net.UDPAddr{IP: ip, Port: s.Port}
	default:
		return &net.UDPAddr{}
	}
}

func udpAddrToSockaddr(addr *net.UDPAddr) *unix.SockaddrInet4 {
	sa := &unix.SockaddrInet4{Port: addr.Port}
	if ip4 := addr.IP.To4(); ip4 != nil {
		copy(sa.Addr[:], ip4)
	}
	return sa
}
