package detect

import "strconv"

// minPolygonCoords is three x,y points, the smallest closed polygon.
const minPolygonCoords = 6

func processObjectDetection(raw [][]RawObject, sizes []imageSize, classes []string) []ImagePrediction {
	out := make([]ImagePrediction, len(raw))
	for i, objects := range raw {
		boxes := make([]Detection, 0, len(objects))
		for _, obj := range objects {
			boxes = append(boxes, Detection{
				Box:   normalizeBox(obj.Bounds, sizes[i]),
				Label: className(classes, obj.Class),
				Score: obj.Score,
			})
		}
		out[i] = ImagePrediction{Boxes: boxes}
	}
	return out
}

func processInstanceSegmentation(raw [][]RawObject, sizes []imageSize, classes []string) []ImagePrediction {
	out := make([]ImagePrediction, len(raw))
	for i, objects := range raw {
		boxes := make([]Detection, 0, len(objects))
		for _, obj := range objects {
			polygon := normalizePolygons(obj.Polygon, sizes[i])
			if len(polygon) == 0 {
				continue
			}
			boxes = append(boxes, Detection{
				Box:     normalizeBox(obj.Bounds, sizes[i]),
				Label:   className(classes, obj.Class),
				Score:   obj.Score,
				Polygon: polygon,
			})
		}
		out[i] = ImagePrediction{Boxes: boxes}
	}
	return out
}

func normalizeBox(bounds [4]float64, size imageSize) Box {
	w, h := float64(size.width), float64(size.height)
	return Box{
		TopX:    bounds[0] / w,
		TopY:    bounds[1] / h,
		BottomX: bounds[2] / w,
		BottomY: bounds[3] / h,
	}
}

// normalizePolygons converts segments of flat pixel x,y pairs into image
// fractions, dropping segments with fewer than three points.
func normalizePolygons(segments [][]float64, size imageSize) [][]float64 {
	w, h := float64(size.width), float64(size.height)
	out := make([][]float64, 0, len(segments))
	for _, segment := range segments {
		if len(segment) < minPolygonCoords {
			continue
		}
		normalized := make([]float64, len(segment))
		for j, v := range segment {
			if j%2 == 0 {
				normalized[j] = v / w
			} else {
				normalized[j] = v / h
			}
		}
		out = append(out, normalized)
	}
	return out
}

func className(classes []string, idx int) string {
	if idx < 0 || idx >= len(classes) {
		return strconv.Itoa(idx)
	}
	return classes[idx]
}
