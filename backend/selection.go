package backend

// activeSelection は現在開いているノートのID
// 存在しないIDも保持でき、参照時に見つからなければ「なし」として扱う
type activeSelection struct {
	id  string
	set bool
}

func (s *activeSelection) Select(id string) {
	s.id = id
	s.set = true
}

func (s *activeSelection) Clear() {
	s.id = ""
	s.set = false
}

// Is は指定IDが選択中かどうかを返す
func (s *activeSelection) Is(id string) bool {
	return s.set && s.id == id
}

// Resolve はノート一覧から選択中のノートを探す
func (s *activeSelection) Resolve(notes []Note) (Note, bool) {
	if !s.set {
		return Note{}, false
	}
	for _, note := range notes {
		if note.ID == s.id {
			return note, true
		}
	}
	return Note{}, false
}
