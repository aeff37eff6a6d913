// Пакет catalog — статический справочник курсов и ступеней
// образовательного каталога и карта проектов (project_list.yaml).
package catalog

// Типы курсов.
const (
	CourseMain          = "main_course"
	CourseExtension     = "extension"
	CourseTeenz         = "teenz"
	CourseSupplementary = "supplementary"
)

// Отображаемые названия курсов.
const (
	CourseNameMain          = "링키영어 메인코스"
	CourseNameExtension     = "익스텐션 코스"
	CourseNameTeenz         = "TEENZ 코스"
	CourseNameSupplementary = "Supplimentary 코스"
)

// StageCategory — одна ступень курса в справочнике.
type StageCategory struct {
	// CourseName — отображаемое название курса
	CourseName string `json:"course_name"`
	// StageName — название ступени
	StageName string `json:"stage_name"`
	// StageCode — короткий код ступени
	StageCode string `json:"stage_code"`
}

// CourseGroup — курс со списком его ступеней (группированный вид справочника).
type CourseGroup struct {
	// CourseName — отображаемое название курса
	CourseName string `json:"course_name"`
	// CourseType — машинный тип курса
	CourseType string `json:"course_type"`
	// Stages — ступени курса в порядке справочника
	Stages []Stage `json:"stages"`
}

// Stage — ступень внутри группированного вида.
type Stage struct {
	// StageName — название ступени
	StageName string `json:"stage_name"`
	// StageCode — короткий код ступени
	StageCode string `json:"stage_code"`
}

// allCategories — полный справочник ступеней в каноническом порядке.
var allCategories = []StageCategory{
	{CourseName: CourseNameMain, StageName: "Stage1-1", StageCode: "ST1-1"},
	{CourseName: CourseNameMain, StageName: "Stage1-2", StageCode: "ST1-2"},
	{CourseName: CourseNameMain, StageName: "Stage2-1", StageCode: "ST2-1"},
	{CourseName: CourseNameMain, StageName: "Stage2-2", StageCode: "ST2-2"},
	{CourseName: CourseNameMain, StageName: "Stage3", StageCode: "ST3"},
	{CourseName: CourseNameExtension, StageName: "JELLY", StageCode: "JEL"},
	{CourseName: CourseNameExtension, StageName: "JUICE", StageCode: "JUI"},
	{CourseName: CourseNameTeenz, StageName: "TEENZ1-1", StageCode: "TZ1-1"},
	{CourseName: CourseNameTeenz, StageName: "TEENZ1-2", StageCode: "TZ1-2"},
	{CourseName: CourseNameTeenz, StageName: "TEENZ2-1", StageCode: "TZ2-1"},
	{CourseName: CourseNameTeenz, StageName: "TEENZ2-2", StageCode: "TZ2-2"},
	{CourseName: CourseNameTeenz, StageName: "TEENZ Phonics", StageCode: "TZP"},
	{CourseName: CourseNameSupplementary, StageName: "Reengki Phonics", StageCode: "RKP"},
	{CourseName: CourseNameSupplementary, StageName: "Alphabet", StageCode: "ALP"},
}

// courseTypes — отображаемое название курса → машинный тип.
var courseTypes = map[string]string{
	CourseNameMain:          CourseMain,
	CourseNameExtension:     CourseExtension,
	CourseNameTeenz:         CourseTeenz,
	CourseNameSupplementary: CourseSupplementary,
}

// AllCategories возвращает копию полного справочника ступеней.
func AllCategories() []StageCategory {
	out := make([]StageCategory, len(allCategories))
	copy(out, allCategories)
	return out
}

// ByStageCode ищет ступень по коду. Второй результат false, если код неизвестен.
func ByStageCode(code string) (StageCategory, bool) {
	for _, c := range allCategories {
		if c.StageCode == code {
			return c, true
		}
	}
	return StageCategory{}, false
}

// CourseType возвращает машинный тип курса по отображаемому названию.
// Для неизвестного названия возвращает CourseSupplementary.
func CourseType(courseName string) string {
	if t, ok := courseTypes[courseName]; ok {
		return t
	}
	return CourseSupplementary
}

// GroupByCourse возвращает справочник, сгруппированный по курсам.
// Порядок курсов и ступеней соответствует каноническому порядку справочника.
func GroupByCourse() []CourseGroup {
	var groups []CourseGroup
	index := make(map[string]int)
	for _, c := range allCategories {
		i, ok := index[c.CourseName]
		if !ok {
			groups = append(groups, CourseGroup{
				CourseName: c.CourseName,
				CourseType: CourseType(c.CourseName),
			})
			i = len(groups) - 1
			index[c.CourseName] = i
		}
		groups[i].Stages = append(groups[i].Stages, Stage{
			StageName: c.StageName,
			StageCode: c.StageCode,
		})
	}
	return groups
}
