package domain

// ConversationState enumerates the negotiation phases reported by the backend
// agent. Exactly one value applies to a session at a time.
type ConversationState string

const (
	StateIdle                 ConversationState = "idle"
	StateUnderstanding        ConversationState = "understanding"
	StatePlanning             ConversationState = "planning"
	StateAwaitingConfirmation ConversationState = "awaiting_confirmation"
	StateExecuting            ConversationState = "executing"
)

// ReferenceImageMode controls how an attached reference image constrains a
// generation.
type ReferenceImageMode string

const (
	// RefModeFaceSwap keeps pose, background and outfit from the reference
	// and replaces only the face.
	RefModeFaceSwap ReferenceImageMode = "face_swap"
	// RefModePoseBackground references the pose and background composition.
	RefModePoseBackground ReferenceImageMode = "pose_background"
	// RefModeClothingPose references the outfit and pose only.
	RefModeClothingPose ReferenceImageMode = "clothing_pose"
	// RefModeCustom applies no preset; the free-text message conveys intent.
	RefModeCustom ReferenceImageMode = "custom"
)

// EditType enumerates supported image edit categories.
type EditType string

const (
	EditTypeAdd        EditType = "add"
	EditTypeRemove     EditType = "remove"
	EditTypeReplace    EditType = "replace"
	EditTypeModify     EditType = "modify"
	EditTypeStyle      EditType = "style"
	EditTypeBackground EditType = "background"
	EditTypeOutfit     EditType = "outfit"
)

// DefaultAspectRatio is applied when a confirmation does not specify one.
const DefaultAspectRatio = "9:16"

// GenerationParams carries the optional knobs of a proposed generation.
type GenerationParams struct {
	ContentType        string             `json:"content_type,omitempty"`
	Style              string             `json:"style,omitempty"`
	Cloth              string             `json:"cloth,omitempty"`
	SceneDescription   string             `json:"scene_description,omitempty"`
	AspectRatio        string             `json:"aspect_ratio,omitempty"`
	ReferenceImagePath string             `json:"reference_image_path,omitempty"`
	ReferenceImageMode ReferenceImageMode `json:"reference_image_mode,omitempty"`
}

// PendingGeneration is a backend-proposed generation plan awaiting user
// confirmation.
type PendingGeneration struct {
	Skill           string           `json:"skill"`
	Params          GenerationParams `json:"params"`
	OptimizedPrompt string           `json:"optimized_prompt"`
	Reasoning       string           `json:"reasoning"`
	Suggestions     []string         `json:"suggestions,omitempty"`
}

// EditParams carries the required and optional fields of a proposed edit.
type EditParams struct {
	SourceImagePath         string   `json:"source_image_path"`
	EditType                EditType `json:"edit_type,omitempty"`
	EditInstruction         string   `json:"edit_instruction"`
	AdditionalReferencePath string   `json:"additional_reference_path,omitempty"`
}

// PendingEdit is a backend-proposed image edit plan awaiting user
// confirmation.
type PendingEdit struct {
	Skill           string     `json:"skill"`
	Params          EditParams `json:"params"`
	OptimizedPrompt string     `json:"optimized_prompt"`
	Reasoning       string     `json:"reasoning"`
	Suggestions     []string   `json:"suggestions,omitempty"`
}

// PendingAction is the union of the two plan variants the agent may propose.
// Exactly one of the fields is non-nil.
type PendingAction struct {
	Generation *PendingGeneration
	Edit       *PendingEdit
}
