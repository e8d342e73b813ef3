package services

import (
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// shortID - 8 шестнадцатеричных символов случайного UUID.
func shortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// placeholderArtifacts генерирует имена файла модели и миниатюры.
// Самих файлов нет: преобразование 2D→3D не выполняется.
func placeholderArtifacts() (modelFile, thumbnail string) {
	return "model_" + shortID() + ".obj", "thumb_" + shortID() + ".jpg"
}

// SanitizeFilename делает имя файла безопасным для записи в папку загрузок:
// разделители путей и пробелы превращаются в '_', остаются только латинские буквы,
// цифры, '.', '_' и '-', точки и подчеркивания по краям убираются.
// Расширение сохраняется отдельно, чтобы не потерять его при пустом имени.
func SanitizeFilename(name string) string {
	name = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' {
			return ' '
		}
		return r
	}, name)
	name = strings.Join(strings.Fields(name), "_")

	ext := filepath.Ext(name)
	stem := cleanPart(strings.TrimSuffix(name, ext))
	ext = cleanPart(ext)

	if stem == "" {
		stem = "upload"
	}
	if ext == "" {
		return stem
	}
	return stem + "." + ext
}

func cleanPart(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '.' || r == '_' || r == '-' {
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "._")
}
