package inmemdb

import (
	"sync"

	"github.com/Shilpa0612/school-app-backend-sub003/core/chat"
	"github.com/Shilpa0612/school-app-backend-sub003/core/directory"
	"github.com/Shilpa0612/school-app-backend-sub003/core/notification"
	"github.com/Shilpa0612/school-app-backend-sub003/core/user"
)

type (
	// DB keeps every table in memory. Each table has its own lock, held for
	// the whole of a read or a conditional write.
	DB struct {
		user         *userTable
		directory    *directoryTables
		chat         *chatTables
		notification *notificationTable
		device       *deviceTable
	}

	userTable struct {
		mutex sync.RWMutex
		table map[string]*user.User
	}

	directoryTables struct {
		mutex       sync.RWMutex
		assignments []*directory.TeacherClassAssignment
		links       []directory.GuardianStudentLink
		students    map[string]directory.Student
	}

	chatTables struct {
		mutex    sync.RWMutex
		threads  map[string]chat.Thread
		messages map[string]*chat.Message
		edits    []chat.Edit
	}

	notificationTable struct {
		mutex sync.RWMutex
		rows  []*notification.Notification
	}

	deviceTable struct {
		mutex sync.RWMutex
		table map[string]*notification.DeviceRegistration // by token
	}
)

func Open() *DB {
	return &DB{
		user:         &userTable{table: make(map[string]*user.User)},
		directory:    &directoryTables{students: make(map[string]directory.Student)},
		chat:         &chatTables{threads: make(map[string]chat.Thread), messages: make(map[string]*chat.Message)},
		notification: &notificationTable{},
		device:       &deviceTable{table: make(map[string]*notification.DeviceRegistration)},
	}
}
