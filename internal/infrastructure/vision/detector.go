//go:build gocv
// +build gocv

package vision

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"math"

	"gocv.io/x/gocv"

	"boxity-analyzer/internal/domain/entity"
)

// DetectDifferences выравнивает текущий снимок по эталону и ищет изменённые области.
func (d *GoCVDetector) DetectDifferences(ctx context.Context, baseline, current entity.Image) ([]entity.Candidate, error) {
	baseMat, err := decodeToMat(baseline.Data)
	if err != nil {
		return nil, fmt.Errorf("baseline: %w", err)
	}
	defer baseMat.Close()

	currentMat, err := decodeToMat(current.Data)
	if err != nil {
		return nil, fmt.Errorf("current: %w", err)
	}
	defer currentMat.Close()

	if err := d.checkImageQuality(baseMat, "baseline"); err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrFallbackUnavailable, err)
	}
	if err := d.checkImageQuality(currentMat, "current"); err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrFallbackUnavailable, err)
	}

	// Приводим эталон к стандартному размеру для стабильных порогов.
	d.fitMaxSide(&baseMat)
	size := image.Pt(baseMat.Cols(), baseMat.Rows())
	if currentMat.Cols() != size.X || currentMat.Rows() != size.Y {
		resized := gocv.NewMat()
		gocv.Resize(currentMat, &resized, size, 0, 0, gocv.InterpolationArea)
		currentMat.Close()
		currentMat = resized
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	baseGray := gocv.NewMat()
	defer baseGray.Close()
	gocv.CvtColor(baseMat, &baseGray, gocv.ColorBGRToGray)

	currentGray := gocv.NewMat()
	defer currentGray.Close()
	gocv.CvtColor(currentMat, &currentGray, gocv.ColorBGRToGray)

	homography, err := d.estimateHomography(baseGray, currentGray)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrFallbackUnavailable, err)
	}
	defer homography.Close()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	aligned := gocv.NewMat()
	defer aligned.Close()
	gocv.WarpPerspective(currentMat, &aligned, homography, size)

	alignedGray := gocv.NewMat()
	defer alignedGray.Close()
	gocv.CvtColor(aligned, &alignedGray, gocv.ColorBGRToGray)

	// Маска валидной области после варпа: пустые края не считаются отличием.
	valid := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 0, 0, 0), size.Y, size.X, gocv.MatTypeCV8U)
	defer valid.Close()
	validWarped := gocv.NewMat()
	defer validWarped.Close()
	gocv.WarpPerspective(valid, &validWarped, homography, size)
	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(15, 15))
	defer kernel.Close()
	gocv.Erode(validWarped, &validWarped, kernel)

	// Выравниваем гистограммы, чтобы свет не давал ложных отличий.
	baseEq := gocv.NewMat()
	defer baseEq.Close()
	gocv.EqualizeHist(baseGray, &baseEq)

	alignedEq := gocv.NewMat()
	defer alignedEq.Close()
	gocv.EqualizeHist(alignedGray, &alignedEq)

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(baseEq, alignedEq, &diff)

	blur := gocv.NewMat()
	defer blur.Close()
	gocv.GaussianBlur(diff, &blur, image.Pt(5, 5), 0, 0, gocv.BorderDefault)

	thresh := gocv.NewMat()
	defer thresh.Close()
	gocv.Threshold(blur, &thresh, d.DiffThreshold, 255, gocv.ThresholdBinary)

	masked := gocv.NewMat()
	defer masked.Close()
	gocv.BitwiseAnd(thresh, validWarped, &masked)

	contours := gocv.FindContours(masked, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	minArea := int(float64(size.X*size.Y) * d.MinAreaRatio)
	regions := make([]diffRegion, 0, contours.Size())
	for i := 0; i < contours.Size(); i++ {
		rect := gocv.BoundingRect(contours.At(i))
		area := rect.Dx() * rect.Dy()
		if area < minArea || rect.Dx() == 0 || rect.Dy() == 0 {
			continue
		}
		regions = append(regions, diffRegion{
			X:          rect.Min.X,
			Y:          rect.Min.Y,
			W:          rect.Dx(),
			H:          rect.Dy(),
			Area:       area,
			ColorDelta: meanColorDelta(baseMat, aligned, rect),
		})
	}

	return d.toCandidates(regions, size.X, size.Y), nil
}

// Highlight рисует рамки расхождений цветом их серьёзности.
func (d *GoCVDetector) Highlight(imageData []byte, differences []entity.Difference) ([]byte, error) {
	mat, err := decodeToMat(imageData)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	w, h := float64(mat.Cols()), float64(mat.Rows())
	thickness := max(2, int(math.Round(math.Max(w, h)/400)))
	for _, diff := range differences {
		if diff.BBox == nil {
			continue
		}
		b := *diff.BBox
		rect := image.Rect(int(b[0]*w), int(b[1]*h), int((b[0]+b[2])*w), int((b[1]+b[3])*h))
		c := severityColor(diff.Severity)
		gocv.Rectangle(&mat, rect, c, thickness)
		gocv.PutText(&mat, diff.ID+" "+string(diff.Type), image.Pt(rect.Min.X, max(rect.Min.Y-6, 12)),
			gocv.FontHersheySimplex, 0.5, c, 1)
	}

	img, err := mat.ToImage()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// estimateHomography ORB + kNN с тестом Лоу + RANSAC. Возвращает матрицу current → baseline.
func (d *GoCVDetector) estimateHomography(baseGray, currentGray gocv.Mat) (gocv.Mat, error) {
	orb := gocv.NewORBWithParams(2000, 1.2, 8, 31, 0, 2, gocv.ORBScoreTypeHarris, 31, 20)
	defer orb.Close()

	noMask := gocv.NewMat()
	defer noMask.Close()

	baseKP, baseDesc := orb.DetectAndCompute(baseGray, noMask)
	defer baseDesc.Close()
	currentKP, currentDesc := orb.DetectAndCompute(currentGray, noMask)
	defer currentDesc.Close()

	if baseDesc.Empty() || currentDesc.Empty() {
		return gocv.NewMat(), errors.New("no features found")
	}

	matcher := gocv.NewBFMatcherWithParams(gocv.NormHamming, false)
	defer matcher.Close()

	var srcF, dstF []gocv.Point2f
	for _, pair := range matcher.KnnMatch(currentDesc, baseDesc, 2) {
		if len(pair) < 2 || pair[0].Distance >= d.RatioTest*pair[1].Distance {
			continue
		}
		q := currentKP[pair[0].QueryIdx]
		t := baseKP[pair[0].TrainIdx]
		srcF = append(srcF, gocv.Point2f{X: float32(q.X), Y: float32(q.Y)})
		dstF = append(dstF, gocv.Point2f{X: float32(t.X), Y: float32(t.Y)})
	}
	if len(srcF) < d.MinMatches {
		return gocv.NewMat(), fmt.Errorf("not enough feature matches: %d < %d", len(srcF), d.MinMatches)
	}

	srcVec := gocv.NewPoint2fVectorFromPoints(srcF)
	defer srcVec.Close()
	dstVec := gocv.NewPoint2fVectorFromPoints(dstF)
	defer dstVec.Close()

	src := gocv.NewMatFromPoint2fVector(srcVec, true)
	defer src.Close()
	dst := gocv.NewMatFromPoint2fVector(dstVec, true)
	defer dst.Close()

	inliers := gocv.NewMat()
	defer inliers.Close()
	h := gocv.FindHomography(src, &dst, gocv.HomographyMethodRANSAC, 3, &inliers, 2000, 0.995)
	if h.Empty() || h.Rows() != 3 || h.Cols() != 3 {
		h.Close()
		return gocv.NewMat(), errors.New("homography not found")
	}

	var m [3][3]float64
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			m[r][c] = h.GetDoubleAt(r, c)
		}
	}
	if isDegenerate(m) {
		h.Close()
		return gocv.NewMat(), errors.New("degenerate homography")
	}
	return h, nil
}

func (d *GoCVDetector) fitMaxSide(mat *gocv.Mat) {
	if mat.Cols() <= d.MaxSide && mat.Rows() <= d.MaxSide {
		return
	}
	scale := float64(d.MaxSide) / float64(max(mat.Cols(), mat.Rows()))
	resized := gocv.NewMat()
	gocv.Resize(*mat, &resized, image.Pt(int(float64(mat.Cols())*scale), int(float64(mat.Rows())*scale)), 0, 0, gocv.InterpolationArea)
	mat.Close()
	*mat = resized
}

// meanColorDelta евклидова разница средних BGR внутри области.
func meanColorDelta(base, aligned gocv.Mat, rect image.Rectangle) float64 {
	baseROI := base.Region(rect)
	defer baseROI.Close()
	alignedROI := aligned.Region(rect)
	defer alignedROI.Close()

	a, b := baseROI.Mean(), alignedROI.Mean()
	d1, d2, d3 := a.Val1-b.Val1, a.Val2-b.Val2, a.Val3-b.Val3
	return math.Sqrt(d1*d1 + d2*d2 + d3*d3)
}

// decodeToMat превращает байты изображения в gocv.Mat.
func decodeToMat(imageData []byte) (gocv.Mat, error) {
	mat, err := gocv.IMDecode(imageData, gocv.IMReadColor)
	if err == nil && !mat.Empty() {
		return mat, nil
	}
	if !mat.Empty() {
		mat.Close()
	}
	return gocv.NewMat(), errors.New("failed to decode image")
}

func (d *GoCVDetector) checkImageQuality(mat gocv.Mat, label string) error {
	if mat.Empty() {
		return fmt.Errorf("quality gate failed for %s: empty image", label)
	}

	if mat.Cols() < d.MinImageSide || mat.Rows() < d.MinImageSide {
		return fmt.Errorf("quality gate failed for %s: image is too small (%dx%d)", label, mat.Cols(), mat.Rows())
	}

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(mat, &gray, gocv.ColorBGRToGray)

	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(gray, &edges, 80, 160)
	if r := ratioOfMask(edges); r < d.MinSharpnessEdgeRatio {
		return fmt.Errorf("quality gate failed for %s: image is blurry (edge_ratio=%.4f)", label, r)
	}

	bright := gocv.NewMat()
	defer bright.Close()
	gocv.Threshold(gray, &bright, 250, 255, gocv.ThresholdBinary)
	if r := ratioOfMask(bright); r > d.MaxOverexposedRatio {
		return fmt.Errorf("quality gate failed for %s: overexposed image (ratio=%.4f)", label, r)
	}

	dark := gocv.NewMat()
	defer dark.Close()
	gocv.Threshold(gray, &dark, 20, 255, gocv.ThresholdBinaryInv)
	if r := ratioOfMask(dark); r > d.MaxUnderexposedRatio {
		return fmt.Errorf("quality gate failed for %s: underexposed image (ratio=%.4f)", label, r)
	}

	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(mat, &hsv, gocv.ColorBGRToHSV)
	channels := gocv.Split(hsv)
	for i := range channels {
		defer channels[i].Close()
	}
	if len(channels) < 3 {
		return fmt.Errorf("quality gate failed for %s: invalid hsv channels", label)
	}

	lowSat := gocv.NewMat()
	defer lowSat.Close()
	gocv.Threshold(channels[1], &lowSat, 40, 255, gocv.ThresholdBinaryInv)

	highVal := gocv.NewMat()
	defer highVal.Close()
	gocv.Threshold(channels[2], &highVal, 245, 255, gocv.ThresholdBinary)

	glare := gocv.NewMat()
	defer glare.Close()
	gocv.BitwiseAnd(lowSat, highVal, &glare)
	if r := ratioOfMask(glare); r > d.MaxGlareRatio {
		return fmt.Errorf("quality gate failed for %s: too much glare (ratio=%.4f)", label, r)
	}

	return nil
}

func ratioOfMask(mask gocv.Mat) float64 {
	total := mask.Cols() * mask.Rows()
	if total <= 0 {
		return 0
	}
	return float64(gocv.CountNonZero(mask)) / float64(total)
}
