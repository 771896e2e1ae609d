package po

import (
	"time"

	"github.com/google/uuid"
)

// Gender 表示儿童性别。
type Gender string

// 性别常量
const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
	GenderOther  Gender = "OTHER"
)

// Child 表示 analysis.children 表的只读视图，数据由 profile 子系统维护。
type Child struct {
	ChildID   uuid.UUID  `db:"child_id"`
	UserID    uuid.UUID  `db:"user_id"`
	Name      string     `db:"name"`
	Gender    Gender     `db:"gender"`
	BirthDate *time.Time `db:"birth_date"`
	CreatedAt time.Time  `db:"created_at"`
}
