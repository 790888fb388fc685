package contracts

// Pipeline Stage 정의 (SSOT)
// 모든 로그, 메트릭, PickRun 기록에서 이 상수를 사용해야 함
//
// 파이프라인 흐름:
//   S1 → S2 → (S3 ∥ S4) → S5 → S6
//   Universe  Shortlist  Technical/News  Selection  Publish

// Stage represents a pipeline stage
type Stage string

const (
	// StageUniverse S1: 당일 유니버스 + 별칭 인덱스
	// 위치: internal/s1_universe/
	StageUniverse Stage = "S1_UNIVERSE"

	// StageShortlist S2: 실시간 시세 기반 빠른 숏리스트
	// 위치: internal/s2_shortlist/
	StageShortlist Stage = "S2_SHORTLIST"

	// StageTechnical S3: 기술적 팩터 점수 (bounded worker pool)
	// 위치: internal/s3_technical/
	StageTechnical Stage = "S3_TECHNICAL"

	// StageNews S4: 뉴스 매핑, 클러스터링, 카탈리스트 분류, 후보 점수
	// 위치: internal/s4_news/
	StageNews Stage = "S4_NEWS"

	// StageSelection S5: 블렌딩 + 하드 게이트
	// 위치: internal/selection/
	StageSelection Stage = "S5_SELECTION"

	// StagePublish S6: 실행 기록 + 멱등 발행
	// 위치: internal/publish/
	StagePublish Stage = "S6_PUBLISH"
)

// String returns the stage name
func (s Stage) String() string {
	return string(s)
}

// ShortName returns abbreviated stage name (e.g., "S1", "S2")
func (s Stage) ShortName() string {
	switch s {
	case StageUniverse:
		return "S1"
	case StageShortlist:
		return "S2"
	case StageTechnical:
		return "S3"
	case StageNews:
		return "S4"
	case StageSelection:
		return "S5"
	case StagePublish:
		return "S6"
	default:
		return "UNKNOWN"
	}
}

// Description returns a human readable description of the stage
func (s Stage) Description() string {
	switch s {
	case StageUniverse:
		return "당일 유니버스"
	case StageShortlist:
		return "빠른 숏리스트"
	case StageTechnical:
		return "기술적 점수"
	case StageNews:
		return "뉴스 후보"
	case StageSelection:
		return "블렌딩/게이트"
	case StagePublish:
		return "기록/발행"
	default:
		return "알 수 없음"
	}
}

// AllStages returns all pipeline stages in order
func AllStages() []Stage {
	return []Stage{
		StageUniverse,
		StageShortlist,
		StageTechnical,
		StageNews,
		StageSelection,
		StagePublish,
	}
}

// IsValidStage checks if a stage string is valid
func IsValidStage(s string) bool {
	for _, stage := range AllStages() {
		if string(stage) == s {
			return true
		}
	}
	return false
}

// StageCounts records input/output sizes per stage for one invocation
type StageCounts struct {
	Universe    int `json:"universe"`
	Shortlisted int `json:"shortlisted"`
	TechScored  int `json:"tech_scored"`
	NewsScored  int `json:"news_scored"`
	Passed      int `json:"passed"`
	Rejected    int `json:"rejected"`
}

// PipelineResult represents the result of a pipeline stage execution
type PipelineResult struct {
	Stage       Stage  `json:"stage"`
	Success     bool   `json:"success"`
	InputCount  int    `json:"input_count"`
	OutputCount int    `json:"output_count"`
	Duration    int64  `json:"duration_ms"`
	Error       string `json:"error,omitempty"`
}
