package domain

// TileGrid computes the deterministic extraction grid for a slide region of
// the given dimensions. Tiles start at (0,0) and advance by tileSize-overlap
// on both axes; a partial tile at the edge is dropped because it cannot
// satisfy the fixed model input size.
func TileGrid(slideID string, level, width, height, tileSize, overlap int) []TileCoordinate {
	if tileSize <= 0 || overlap < 0 || overlap >= tileSize {
		return nil
	}
	if width < tileSize || height < tileSize {
		return nil
	}

	step := tileSize - overlap
	cols := (width-tileSize)/step + 1
	rows := (height-tileSize)/step + 1

	coords := make([]TileCoordinate, 0, cols*rows)
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			coords = append(coords, TileCoordinate{
				SlideID: slideID,
				Level:   level,
				X:       col * step,
				Y:       row * step,
				Width:   tileSize,
				Height:  tileSize,
			})
		}
	}
	return coords
}

// GridSize returns the number of tile columns and rows without materializing
// the coordinates.
func GridSize(width, height, tileSize, overlap int) (cols, rows int) {
	if tileSize <= 0 || overlap < 0 || overlap >= tileSize {
		return 0, 0
	}
	if width < tileSize || height < tileSize {
		return 0, 0
	}
	step := tileSize - overlap
	return (width-tileSize)/step + 1, (height-tileSize)/step + 1
}
