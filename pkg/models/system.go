package models

// FixtureChange 赛程变化
type FixtureChange struct {
	MessageBase
	StartTime    *int64 `xml:"start_time,attr"`
	NextLiveTime *int64 `xml:"next_live_time,attr"`
	ChangeType   *int   `xml:"change_type,attr"`
}

func (m *FixtureChange) Kind() MessageKind { return KindFixtureChange }

// Alive 心跳
type Alive struct {
	MessageBase
	Subscribed int `xml:"subscribed,attr"`
}

func (m *Alive) Kind() MessageKind { return KindAlive }

// IsEventRelated 心跳与赛事无关
func (m *Alive) IsEventRelated() bool { return false }

// SnapshotComplete 恢复请求完成
type SnapshotComplete struct {
	MessageBase
}

func (m *SnapshotComplete) Kind() MessageKind { return KindSnapshotComplete }

// IsEventRelated 恢复完成与赛事无关
func (m *SnapshotComplete) IsEventRelated() bool { return false }
