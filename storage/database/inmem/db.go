package inmemdb

import (
	"sync"
	"time"

	"github.com/prochartist/backend/core/application"
	"github.com/prochartist/backend/core/catalog"
	"github.com/prochartist/backend/core/league"
	"github.com/prochartist/backend/core/payment"
	"github.com/prochartist/backend/core/progress"
	"github.com/prochartist/backend/core/user"
	"github.com/prochartist/backend/core/video"
)

type (
	// DB is a process-local database. Each table is guarded by its own lock.
	DB struct {
		user        *userTable
		progress    *progressTable
		phase       *phaseTable
		video       *videoTable
		application *applicationTable
		league      *leagueTable
		payment     *paymentTable
		otp         *otpTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	progressTable struct {
		sync.RWMutex
		table map[string]*progress.Record
	}

	phaseTable struct {
		sync.RWMutex
		table map[string]*catalog.Phase
	}

	videoTable struct {
		sync.RWMutex
		table map[int]*video.Video
	}

	// applicationTable keeps one bucket of applications per league date.
	applicationTable struct {
		sync.RWMutex
		buckets map[string][]application.Application
	}

	leagueTable struct {
		sync.RWMutex
		record *league.League
	}

	paymentTable struct {
		sync.RWMutex
		payments  map[string]*payment.Payment // by order id
		purchases map[string]*payment.Purchase
	}

	otpEntry struct {
		code      string
		expiresAt time.Time
	}

	otpTable struct {
		sync.Mutex
		table map[string]otpEntry
	}
)

func Open() *DB {
	return &DB{
		user:        &userTable{table: make(map[string]*user.User)},
		progress:    &progressTable{table: make(map[string]*progress.Record)},
		phase:       &phaseTable{table: make(map[string]*catalog.Phase)},
		video:       &videoTable{table: make(map[int]*video.Video)},
		application: &applicationTable{buckets: make(map[string][]application.Application)},
		league:      &leagueTable{},
		payment: &paymentTable{
			payments:  make(map[string]*payment.Payment),
			purchases: make(map[string]*payment.Purchase),
		},
		otp: &otpTable{table: make(map[string]otpEntry)},
	}
}
