package entity

// GenerationConfig параметры генерации для вызова модели.
type GenerationConfig struct {
	Temperature float32
	TopK        int32
	TopP        float32
	JSONOutput  bool
}

// DetectionConfig настройки генерации для сравнения снимков.
var DetectionConfig = GenerationConfig{
	Temperature: 0.15,
	TopK:        20,
	TopP:        0.8,
	JSONOutput:  true,
}

// ModelPart часть запроса: текст или изображение.
type ModelPart struct {
	Text  string
	Image *Image
}

// ModelRequest запрос к мультимодальной модели.
type ModelRequest struct {
	SystemInstruction string
	Parts             []ModelPart
	Config            GenerationConfig
}
